package actor

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"ride-dispatch/internal/domain/ride"
	"ride-dispatch/internal/general/contracts"
)

// DefaultCancelReason is used by the operator when no reason is given.
const DefaultCancelReason = "cancelled by operator"

var (
	testPickups = []string{
		"Shopping Ibirapuera",
		"Estação da Sé",
		"Aeroporto de Guarulhos",
		"Shopping Center Norte",
		"Universidade de São Paulo",
		"Teatro Municipal",
	}
	testDestinations = []string{
		"Aeroporto de Congonhas",
		"Shopping Vila Olímpia",
		"Estação da Luz",
		"Parque do Ibirapuera",
		"Centro Empresarial",
		"Hospital das Clínicas",
	}
)

// Operator is the ctl tool: it inspects and steers rides through the engine.
type Operator struct {
	client *DispatchClient
	out    io.Writer
}

func NewOperator(client *DispatchClient, out io.Writer) *Operator {
	return &Operator{client: client, out: out}
}

// OperatorReplyQueue returns a fresh reply queue for one ctl session.
func OperatorReplyQueue(session string) string { return contracts.OperatorReplyPrefix + session }

// Monitor prints every ride followed by the statistics.
func (op *Operator) Monitor(ctx context.Context) error {
	rides, err := op.client.ListRides(ctx, contracts.RideFilter{})
	if err != nil {
		return fmt.Errorf("list rides: %w", err)
	}
	stats, err := op.client.Stats(ctx)
	if err != nil {
		return fmt.Errorf("stats: %w", err)
	}

	fmt.Fprintln(op.out, "📊 === ride monitor ===")
	fmt.Fprintln(op.out)
	if len(rides) == 0 {
		fmt.Fprintln(op.out, "🚫 no rides in the system")
	}
	for _, r := range rides {
		WriteRide(op.out, r)
	}
	WriteStats(op.out, *stats)
	return nil
}

// List prints the rides currently in status.
func (op *Operator) List(ctx context.Context, status string) error {
	parsed, err := ride.ParseStatus(status)
	if err != nil {
		return fmt.Errorf("%w: %q (valid: %s)", err, status, strings.Join(validStatuses(), ", "))
	}

	rides, err := op.client.ListRides(ctx, contracts.RideFilter{Status: parsed.String()})
	if err != nil {
		return err
	}
	fmt.Fprintf(op.out, "📋 rides in %s: %d\n\n", parsed, len(rides))
	for _, r := range rides {
		WriteRide(op.out, r)
	}
	return nil
}

// Update moves a ride to status.
func (op *Operator) Update(ctx context.Context, rideID, status, message string) error {
	parsed, err := ride.ParseStatus(status)
	if err != nil {
		return fmt.Errorf("%w: %q (valid: %s)", err, status, strings.Join(validStatuses(), ", "))
	}

	view, err := op.client.UpdateStatus(ctx, rideID, parsed, message)
	if view != nil {
		fmt.Fprintf(op.out, "✅ ride %s is now %s\n", view.ID, view.Status)
	}
	return err
}

// Cancel cancels a ride with reason, or the default operator reason.
func (op *Operator) Cancel(ctx context.Context, rideID, reason string) error {
	if strings.TrimSpace(reason) == "" {
		reason = DefaultCancelReason
	}
	view, err := op.client.CancelRide(ctx, rideID, reason)
	if view != nil {
		fmt.Fprintf(op.out, "❌ ride %s cancelled: %s\n", view.ID, reason)
	}
	return err
}

// GenerateTestRides requests n rides for synthetic passengers, pausing
// between requests.
func (op *Operator) GenerateTestRides(ctx context.Context, n int, pause time.Duration) ([]contracts.RideView, error) {
	if n <= 0 {
		n = 3
	}
	fmt.Fprintf(op.out, "🧪 generating %d test rides\n", n)

	created := make([]contracts.RideView, 0, n)
	for i := 1; i <= n; i++ {
		passengerID := fmt.Sprintf("test_passenger_%03d", i)
		view, err := op.client.RequestRide(ctx, passengerID, pick(testPickups), pick(testDestinations))
		if view != nil {
			created = append(created, *view)
			fmt.Fprintf(op.out, "   %s: %s → %s\n", view.ID, view.Pickup, view.Destination)
		}
		if err != nil {
			return created, fmt.Errorf("test ride %d: %w", i, err)
		}
		if i < n && !sleep(ctx, pause) {
			return created, ctx.Err()
		}
	}
	return created, nil
}

func validStatuses() []string {
	return []string{
		ride.StatusPending.String(),
		ride.StatusAccepted.String(),
		ride.StatusDriverArrived.String(),
		ride.StatusInProgress.String(),
		ride.StatusCompleted.String(),
		ride.StatusCancelled.String(),
	}
}
