package domain

// MaxActivityLevel is the deepest level an activity may sit at (1 = root).
const MaxActivityLevel = 3

// Activity maps the activities table. ParentID is nil for roots.
type Activity struct {
	ID       int64  `db:"id" json:"id"`
	Name     string `db:"name" json:"name"`
	ParentID *int64 `db:"parent_id" json:"parent_id"`
	Level    int    `db:"level" json:"level"`
}

// ChildLevel returns the level a child of a would get.
func (a *Activity) ChildLevel() int {
	return a.Level + 1
}

// CanHaveChildren reports whether a child would stay within MaxActivityLevel.
func (a *Activity) CanHaveChildren() bool {
	return a.ChildLevel() <= MaxActivityLevel
}
