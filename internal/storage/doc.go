package storage

// Package storage is the job/technician store boundary.
//
// It owns two responsibilities:
//   - Persistence drivers ("file" JSON documents, "sqlite") behind the
//     Store interface.
//   - Normalization of the duck-typed upstream job shape (nested
//     location/customer objects, fallback field names) into the
//     schedule.Job value type, so the scheduling core never sees raw
//     documents.
//
// It also keeps alert-escalation dedup state so restarts don't re-page.
