package domain

// PairingStatus is the observable state of a device pairing. Expiry is not a
// stored state: records simply disappear when their TTL runs out.
type PairingStatus string

const (
	PairingStatusNone      PairingStatus = "none"
	PairingStatusPending   PairingStatus = "pending"
	PairingStatusCompleted PairingStatus = "completed"
)

// Protocol versions of the device client. Version 1 clients use the implicit
// grant and post the token themselves, version 2 clients rely on the server
// side authorization code exchange.
const (
	ProtocolVersionImplicit      = 1
	ProtocolVersionAuthorization = 2
)

// PairingRecord is stored under the device key while a code is outstanding.
type PairingRecord struct {
	Code            string `json:"id"`
	ProtocolVersion int    `json:"version"`
	DeviceType      string `json:"type,omitempty"`
	DeviceID        string `json:"device_id,omitempty"`
}

// TokenRecord is stored under the pairing code once the browser side of the
// flow produced a token. Its presence completes the pairing.
type TokenRecord struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int64  `json:"expires_in,omitempty"`
	Scope        string `json:"scope,omitempty"`
}

// LinkStatus is what a polling device sees.
type LinkStatus struct {
	Complete     bool   `json:"complete"`
	Token        string `json:"token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int64  `json:"expires_in,omitempty"`
	Scope        string `json:"scope,omitempty"`
}

// Status maps the poll result onto the pairing state machine.
func (s LinkStatus) Status() PairingStatus {
	if s.Complete {
		return PairingStatusCompleted
	}
	return PairingStatusPending
}
