package models

// Role is the permission level attached to a user profile.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Collection names in the document store.
const (
	CollectionUsers    = "users"
	CollectionPosts    = "posts"
	CollectionComments = "comments"
)

// UserProfile is the per-identity record carrying the authorization role.
// It is created once, on first successful login, with RoleUser; promotion to
// admin happens out-of-band by editing the stored document directly.
type UserProfile struct {
	ID        string `bson:"_id" json:"id"`
	Email     string `bson:"email" json:"email"`
	Role      Role   `bson:"role" json:"role"`
	CreatedAt int64  `bson:"createdAt" json:"createdAt"`
}

// Post is a text post in the feed. AuthorEmail is a denormalized snapshot
// taken at creation time and is not re-synced if the author's email changes.
// Timestamps are epoch milliseconds.
type Post struct {
	ID            string `bson:"_id" json:"id"`
	AuthorID      string `bson:"authorId" json:"authorId"`
	AuthorEmail   string `bson:"authorEmail" json:"authorEmail"`
	Content       string `bson:"content" json:"content"`
	AttachmentKey string `bson:"attachmentKey,omitempty" json:"attachmentKey,omitempty"`
	CreatedAt     int64  `bson:"createdAt" json:"createdAt"`
	UpdatedAt     int64  `bson:"updatedAt" json:"updatedAt"`
}

// Comment references its post by id only. The store does not enforce the
// reference and post deletion does not cascade, so orphaned comments can
// exist; readers filtering by postId will still see them.
type Comment struct {
	ID          string `bson:"_id" json:"id"`
	PostID      string `bson:"postId" json:"postId"`
	AuthorID    string `bson:"authorId" json:"authorId"`
	AuthorEmail string `bson:"authorEmail" json:"authorEmail"`
	Content     string `bson:"content" json:"content"`
	CreatedAt   int64  `bson:"createdAt" json:"createdAt"`
}
