package a

type User struct {
	ID             int64  `json:"id"`
	Hash           string `json:"-" db:"hash"`
	PasswordHash   string `db:"password_hash"` // want "field User.PasswordHash must be tagged `json:\"-\"`"
	HashedPassword string `json:"hashed_password"` // want "field User.HashedPassword must be tagged `json:\"-\"`"
}

type Account struct {
	Hash string // want "field Account.Hash must be tagged `json:\"-\"`"
}

type stored struct {
	Hash string `json:"hash"`
}

type Document struct {
	ContentHash string `json:"content_hash"`
}
