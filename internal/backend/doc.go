// Package backend defines the closed set of database kinds dbenv can
// provision and the per-kind facts the rest of the module needs: the compose
// service name, the default container port, the template file names and the
// connection string format.
//
// Kind is the only place that switches on the backend tag for these facts;
// client dispatch lives in dbclient.New.
package backend
