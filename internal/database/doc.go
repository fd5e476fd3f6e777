// Package database opens the backend store's relational database and
// manages its connection pool. It supports sqlite for local single-user
// deployments and postgres or mysql for shared ones.
package database
