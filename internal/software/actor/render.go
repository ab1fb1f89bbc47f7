package actor

import (
	"fmt"
	"io"
	"strings"
	"time"

	"ride-dispatch/internal/domain/ride"
	"ride-dispatch/internal/general/contracts"
)

// DescribeNotification renders one notification as a single line.
func DescribeNotification(n contracts.Notification) string {
	switch n := n.(type) {
	case *contracts.RideAccepted:
		return fmt.Sprintf("✅ %s driver=%s eta=%s", n.Message, n.DriverID, n.EstimatedArrival)
	case *contracts.StatusUpdate:
		line := fmt.Sprintf("📊 ride %s: %s → %s. %s", n.RideID, n.OldStatus, n.NewStatus, n.Message)
		if hint := statusHint(n.NewStatus); hint != "" {
			line += " " + hint
		}
		return line
	case *contracts.Generic:
		if n.Message == "" {
			return "ℹ️  notification received"
		}
		return "ℹ️  " + n.Message
	default:
		return fmt.Sprintf("unsupported notification %T", n)
	}
}

func statusHint(status string) string {
	switch ride.Status(status) {
	case ride.StatusDriverArrived:
		return "Your driver is here, head to the car."
	case ride.StatusInProgress:
		return "Enjoy the trip!"
	case ride.StatusCompleted:
		return "Thanks for riding, don't forget to rate your driver."
	default:
		return ""
	}
}

var statusIcons = map[string]string{
	ride.StatusPending.String():       "⏳",
	ride.StatusAccepted.String():      "✅",
	ride.StatusDriverArrived.String(): "🚗",
	ride.StatusInProgress.String():    "🛣️",
	ride.StatusCompleted.String():     "🏁",
	ride.StatusCancelled.String():     "❌",
}

func clock(t time.Time) string { return t.Local().Format("15:04:05") }

// WriteRide prints one ride record.
func WriteRide(w io.Writer, r contracts.RideView) {
	icon, ok := statusIcons[r.Status]
	if !ok {
		icon = "📋"
	}
	fmt.Fprintf(w, "%s ride %s\n", icon, r.ID)
	fmt.Fprintf(w, "   passenger:  %s\n", r.PassengerID)
	fmt.Fprintf(w, "   from:       %s\n", r.Pickup)
	fmt.Fprintf(w, "   to:         %s\n", r.Destination)
	fmt.Fprintf(w, "   price:      R$ %.2f\n", r.EstimatedPrice)
	fmt.Fprintf(w, "   status:     %s\n", r.Status)
	fmt.Fprintf(w, "   created:    %s\n", clock(r.Timestamp))
	if r.DriverID != "" {
		fmt.Fprintf(w, "   driver:     %s\n", r.DriverID)
	}
	if r.AcceptedAt != nil {
		fmt.Fprintf(w, "   accepted:   %s\n", clock(*r.AcceptedAt))
	}
	if r.LastUpdate != nil {
		fmt.Fprintf(w, "   updated:    %s\n", clock(*r.LastUpdate))
	}
	if r.CancellationReason != "" {
		fmt.Fprintf(w, "   reason:     %s\n", r.CancellationReason)
	}
	fmt.Fprintln(w)
}

// WriteStats prints the ride table summary.
func WriteStats(w io.Writer, s contracts.Stats) {
	fmt.Fprintln(w, "📈 statistics")
	fmt.Fprintln(w, strings.Repeat("-", 40))
	fmt.Fprintf(w, "   total rides:      %d\n", s.Total)
	fmt.Fprintf(w, "   pending:          %d\n", s.Pending)
	fmt.Fprintf(w, "   accepted:         %d\n", s.Accepted)
	fmt.Fprintf(w, "   driver arrived:   %d\n", s.DriverArrived)
	fmt.Fprintf(w, "   in progress:      %d\n", s.InProgress)
	fmt.Fprintf(w, "   completed:        %d\n", s.Completed)
	fmt.Fprintf(w, "   cancelled:        %d\n", s.Cancelled)
	fmt.Fprintf(w, "   revenue:          R$ %.2f\n", s.TotalRevenue)
	fmt.Fprintf(w, "   completion rate:  %.1f%%\n", s.CompletionRate)
	fmt.Fprintf(w, "   drivers:          %d (%d available)\n", s.Drivers, s.AvailableDrivers)
	fmt.Fprintf(w, "   passengers:       %d\n", s.Passengers)
}
