package postgresql

// migrations returns the ordered schema migrations for the run
// archive.
func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE IF NOT EXISTS runs (
				id VARCHAR(255) PRIMARY KEY,
				ticket_id VARCHAR(255) NOT NULL,
				status VARCHAR(50) NOT NULL,
				stage VARCHAR(100),
				payload JSONB,
				failure_reason TEXT,
				execution_log JSONB NOT NULL DEFAULT '[]'::jsonb,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX IF NOT EXISTS idx_runs_ticket_id ON runs(ticket_id);
			CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
			CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at DESC);
		`,
	}
}
