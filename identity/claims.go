package identity

// Claims are the decoded id_token claims of a signed-in user.
type Claims map[string]any

func (c Claims) str(name string) string {
	if v, ok := c[name].(string); ok {
		return v
	}
	return ""
}

// TenantID is the directory the user signed in through (tid).
func (c Claims) TenantID() string { return c.str("tid") }

// ObjectID identifies the user across applications (oid).
func (c Claims) ObjectID() string { return c.str("oid") }

// Subject identifies the user for this application only (sub).
func (c Claims) Subject() string { return c.str("sub") }

func (c Claims) Name() string { return c.str("name") }

func (c Claims) PreferredUsername() string { return c.str("preferred_username") }

// Email is empty when the provider did not include the optional email claim.
func (c Claims) Email() string { return c.str("email") }

// HomeAccountID is the key the account cache uses for this user: oid.tid
func (c Claims) HomeAccountID() string {
	return HomeAccountID(c.ObjectID(), c.TenantID())
}

// HomeAccountID builds the composite account key from an object id and tenant id.
func HomeAccountID(objectID, tenantID string) string {
	return objectID + "." + tenantID
}
