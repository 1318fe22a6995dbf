package checkout

// Stage is the position of a checkout in its state machine.
type Stage int

const (
	StageStart Stage = iota
	StageAddressSet
	StagePaymentIntentReady
	StageProviderConfirmed
	StageConfirmed
)

// String returns the stage name used in logs.
func (s Stage) String() string {
	switch s {
	case StageStart:
		return "start"
	case StageAddressSet:
		return "address_set"
	case StagePaymentIntentReady:
		return "payment_intent_ready"
	case StageProviderConfirmed:
		return "provider_confirmed"
	case StageConfirmed:
		return "confirmed"
	}
	return "unknown"
}
