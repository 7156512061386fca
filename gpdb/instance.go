// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package gpdb

// State is the lifecycle state of a remote instance.
type State string

const (
	// StateProvisioning is an instance that is still being created.
	StateProvisioning State = "provisioning"
	// StateOnline is an instance that accepts connections.
	StateOnline State = "online"
)

// Instance is a remote analytical database server.
type Instance struct {
	ID                  int64
	Name                string
	Host                string
	Port                int
	MaintenanceDatabase string
	State               State
}

// Account holds the credentials a user has on an instance.
type Account struct {
	Username string
	Password string
}

// Database is a database on an instance.
type Database struct {
	Name     string
	Instance Instance
}

// Schema references a schema inside a database.
type Schema struct {
	ID       int64
	Name     string
	Database Database
}
