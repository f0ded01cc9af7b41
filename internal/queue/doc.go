// Package queue persists jobs, their status ledgers, results, and
// provider usage in SQLite.
//
// Every status change flows through the ledger: AppendStatus writes a
// sequenced record and updates the job row in one transaction, so the
// materialized job status can never disagree with the ledger head.
// Terminal statuses are absorbing; the store rejects appends for jobs
// already completed or failed.
package queue
