package user

import "time"

const Collection = "users"

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	DOB          time.Time `json:"dob"`
	PasswordHash string    `json:"-"` // never expose hash in JSON
	Admin        bool      `json:"admin"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Doc is the stored shape. The hash lives under its own key so the User JSON
// marshaling above can never leak it.
func (u User) Doc() map[string]any {
	doc := map[string]any{
		"email":     u.Email,
		"firstName": u.FirstName,
		"lastName":  u.LastName,
		"dob":       u.DOB.UTC().Format(time.RFC3339),
		"password":  u.PasswordHash,
		"admin":     u.Admin,
		"createdAt": u.CreatedAt.UTC().Format(time.RFC3339),
	}

	if u.ID != "" {
		doc["id"] = u.ID
	}

	return doc
}

// FromDoc rebuilds a User from its stored document.
func FromDoc(doc map[string]any) User {
	u := User{}

	u.ID, _ = doc["id"].(string)
	u.Email, _ = doc["email"].(string)
	u.FirstName, _ = doc["firstName"].(string)
	u.LastName, _ = doc["lastName"].(string)
	u.PasswordHash, _ = doc["password"].(string)
	u.Admin, _ = doc["admin"].(bool)

	if s, ok := doc["dob"].(string); ok {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			u.DOB = t
		}
	}

	if s, ok := doc["createdAt"].(string); ok {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			u.CreatedAt = t
		}
	}

	return u
}
