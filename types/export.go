package types

import "time"

// TenantExport is the snapshot written to object storage by a tenant export.
type TenantExport struct {
	ExportedAt time.Time `json:"exported_at"`
	Tenant     Tenant    `json:"tenant"`
	Users      []User    `json:"users"`
	Projects   []Project `json:"projects"`
}

// ExportResult describes where an export was stored.
type ExportResult struct {
	ObjectKey string `json:"object_key"`
	Bucket    string `json:"bucket"`
	Size      int64  `json:"size"`
}
