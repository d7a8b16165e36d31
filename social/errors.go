package social

import "errors"

var (
	ErrSelfReference = errors.New("cannot follow or unfollow yourself")
	ErrPermission    = errors.New("only the author can change this post")
	ErrPostNotFound  = errors.New("post not found")
)
