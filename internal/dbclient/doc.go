// Package dbclient provides the minimal client capability dbenv needs from
// each backend: connect, disconnect, and reset the database to an empty
// state. Queries are the caller's business.
//
// MongoDB uses the official driver; PostgreSQL and MySQL go through sqlx
// with lib/pq and go-sql-driver/mysql. New is the only place that dispatches
// on the backend kind.
package dbclient
