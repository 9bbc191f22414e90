package txpool

// Origin tags where a candidate transaction came from, controlling
// propagation and fee-floor exemptions (spec §6, §4.3).
type Origin uint8

const (
	// Local transactions were submitted directly via RPC; trusted, and
	// subject to local_transactions_config exemptions.
	Local Origin = iota
	// External transactions arrived from a peer over the P2P protocol;
	// subject to the external minimum-priority-fee floor.
	External
	// Private transactions are local in trust level but must never be
	// propagated to peers.
	Private
)

func (o Origin) String() string {
	switch o {
	case Local:
		return "local"
	case External:
		return "external"
	case Private:
		return "private"
	default:
		return "unknown"
	}
}

// IsLocal reports whether the origin should receive local trust
// exemptions (Local and Private both count; only External does not).
func (o Origin) IsLocal() bool { return o != External }
