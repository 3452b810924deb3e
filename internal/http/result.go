package httpapi

// MutationResult is the body of every successful create, update and delete.
type MutationResult struct {
	OK        bool   `json:"ok"`
	CreatedID *int64 `json:"created_id,omitempty"`
	UpdatedID *int64 `json:"updated_id,omitempty"`
	DeletedID *int64 `json:"deleted_id,omitempty"`
}

// ErrorResult is the body of every failed request.
type ErrorResult struct {
	OK     bool   `json:"ok"`
	Detail string `json:"detail"`
}

func Created(id int64) MutationResult { return MutationResult{OK: true, CreatedID: &id} }
func Updated(id int64) MutationResult { return MutationResult{OK: true, UpdatedID: &id} }
func Deleted(id int64) MutationResult { return MutationResult{OK: true, DeletedID: &id} }

func Fail(detail string) ErrorResult {
	return ErrorResult{OK: false, Detail: detail}
}
