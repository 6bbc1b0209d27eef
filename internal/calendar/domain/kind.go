package domain

// Kind partitions a resource's timeline by who owns the reservation.
// The numeric values are stored as-is and are part of the wire contract
// with the services that created them.
type Kind int16

const (
	// KindOrgReserved marks time an organization has claimed on a
	// resource, usually materialized from a weekly schedule template.
	KindOrgReserved Kind = 0
	// KindManagerReserved marks time a manager has booked inside
	// organization-reserved time.
	KindManagerReserved Kind = 10
	// KindUnavailable marks personal unavailability declared by the
	// resource itself. It is the only kind that may omit organization.
	KindUnavailable Kind = 100
)

// String renders the kind the way interval payloads expose it.
func (k Kind) String() string {
	switch k {
	case KindOrgReserved:
		return "organization"
	case KindManagerReserved:
		return "manager"
	case KindUnavailable:
		return "unavailable"
	}
	return "unknown"
}

// KindFromString maps a rendered kind label back to its value.
// Unknown labels map to KindOrgReserved, matching the historical
// behavior clients rely on.
func KindFromString(s string) Kind {
	switch s {
	case "manager":
		return KindManagerReserved
	case "unavailable":
		return KindUnavailable
	}
	return KindOrgReserved
}

// Valid reports whether k is one of the three known kinds.
func (k Kind) Valid() bool {
	return k == KindOrgReserved || k == KindManagerReserved || k == KindUnavailable
}
