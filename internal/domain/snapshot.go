package domain

// MountedSnapshot is a dated filesystem snapshot mounted at a scratch
// mount point and validated against the sentinel file. Unmounted is set
// by the locator so cleanup can be repeated safely.
type MountedSnapshot struct {
	ID         string
	MountPoint string
	Unmounted  bool
}
