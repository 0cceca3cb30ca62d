package transport

import "context"

// StaticContacts implements ports.ContactDirectory over a fixed contact map
// (contact id to x-only pubkey hex), typically loaded from configuration.
type StaticContacts map[string]string

// PubKey resolves a contact id. Unknown or empty entries report ok=false.
func (c StaticContacts) PubKey(_ context.Context, contactID string) (string, bool, error) {
	pubkey, ok := c[contactID]
	if !ok || pubkey == "" {
		return "", false, nil
	}
	return pubkey, true, nil
}
