package driver

// DriverStatus is the availability of a registered driver.
type DriverStatus string

const (
	DriverStatusAvailable DriverStatus = "AVAILABLE"
	DriverStatusBusy      DriverStatus = "BUSY"
)

// String returns the string representation of the DriverStatus.
func (status DriverStatus) String() string {
	return string(status)
}
