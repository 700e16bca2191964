package store

// Schema creates the ledger tables.
const Schema = `
-- One row per posted bank transaction.
CREATE TABLE IF NOT EXISTS documents (
    id TEXT PRIMARY KEY,                 -- YYYY-MM-NNN
    seq INTEGER NOT NULL,                -- NNN as a number
    natural_key TEXT NOT NULL UNIQUE,    -- dedup key of the source transaction
    date TEXT NOT NULL,                  -- YYYY-MM-DD
    posting_year INTEGER NOT NULL,
    posting_period INTEGER NOT NULL,
    description TEXT NOT NULL,
    reference TEXT NOT NULL DEFAULT '',  -- check number or bank reference
    source TEXT NOT NULL,
    business_partner TEXT NOT NULL DEFAULT '',
    rule TEXT NOT NULL DEFAULT '',
    currency TEXT NOT NULL DEFAULT '',
    unclassified INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    UNIQUE (posting_year, posting_period, seq)
);

-- Document lines; amounts in minor units.
CREATE TABLE IF NOT EXISTS lines (
    document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
    line_no INTEGER NOT NULL,
    account_id TEXT NOT NULL,
    side TEXT NOT NULL CHECK (side IN ('D', 'C')),
    amount INTEGER NOT NULL CHECK (amount > 0),
    PRIMARY KEY (document_id, line_no)
);

CREATE INDEX IF NOT EXISTS idx_lines_account
    ON lines(account_id);
`

const dropSchema = `
DROP TABLE IF EXISTS lines;
DROP TABLE IF EXISTS documents;
`
