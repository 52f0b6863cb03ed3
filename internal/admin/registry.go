package admin

// Registration names an entity exposed through the admin surface together
// with the fields shown when listing it. The list is enumerated at compile
// time instead of reflecting over the live schema.
type Registration struct {
	Entity        string   `json:"entity"`
	DisplayFields []string `json:"display_fields"`
}

var registrations = []Registration{
	{
		Entity: "users",
		DisplayFields: []string{
			"id", "email", "username", "first_name", "last_name",
			"phone", "status", "is_staff", "created_at", "updated_at",
		},
	},
	{
		Entity: "password_reset_tokens",
		DisplayFields: []string{
			"id", "user_id", "expires_at", "used_at", "created_at",
		},
	},
}

// Registrations returns the enumerated entity registrations.
func Registrations() []Registration {
	out := make([]Registration, len(registrations))
	copy(out, registrations)
	return out
}
