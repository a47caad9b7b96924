package enums

// CheckoutState names the phases a single checkout attempt moves through.
// It is surfaced in logs and metrics; Completed and Failed are terminal.
type CheckoutState string

const (
	CheckoutStateIdle            CheckoutState = "idle"
	CheckoutStateValidating      CheckoutState = "validating"
	CheckoutStateCreating        CheckoutState = "creating"
	CheckoutStateAwaitingPayment CheckoutState = "awaiting_payment"
	CheckoutStateConfirming      CheckoutState = "confirming"
	CheckoutStateCompleted       CheckoutState = "completed"
	CheckoutStateFailed          CheckoutState = "failed"
)

// String implements fmt.Stringer.
func (c CheckoutState) String() string {
	return string(c)
}
