package users

import (
	pkgpagination "github.com/praxisworks/accounts-backend/pkg/pagination"
)

type ListParams struct {
	Email string
	pkgpagination.Params
}

type ListResult struct {
	Items  []UserDTO `json:"items"`
	Cursor string    `json:"cursor"`
}

type listQuery struct {
	email  string
	limit  int
	cursor *pkgpagination.Cursor
}
