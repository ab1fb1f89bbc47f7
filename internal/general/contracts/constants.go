package contracts

// Queues
const (
	// QueuePendingRides is the shared queue drivers compete on. The name is kept
	// for interoperability with the consumers already deployed against it.
	QueuePendingRides = "corridas_pendentes"
	QueueCommands     = "dispatch:commands"
)

// Per-identity queue prefixes
const (
	DriverNotificationPrefix    = "notifications:driver:"    // {driver_id}
	PassengerNotificationPrefix = "notifications:passenger:" // {passenger_id}
	DriverReplyPrefix           = "replies:driver:"          // {driver_id}
	PassengerReplyPrefix        = "replies:passenger:"       // {passenger_id}
	OperatorReplyPrefix         = "replies:ctl:"             // {session uuid}
)

// EstimatedArrival is the fixed pickup estimate carried by RIDE_ACCEPTED.
const EstimatedArrival = "5-10 minutes"
