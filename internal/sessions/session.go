package sessions

import "time"

// Session is a persistent refresh session. SubjectID is the identity id the
// refresh token was minted for.
type Session struct {
	ID           string    `bson:"_id,omitempty" json:"id"`
	RefreshToken string    `bson:"refreshToken" json:"refreshToken"`
	SubjectID    string    `bson:"subjectId" json:"subjectId"`
	ExpiresAt    time.Time `bson:"expiresAt" json:"expiresAt"`
	CreatedAt    time.Time `bson:"createdAt" json:"createdAt"`
}
