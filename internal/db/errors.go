package db

import "errors"

// Sentinel errors for database operations.
var (
	ErrKeyNotFound   = errors.New("db: key not found")
	ErrIndexNotFound = errors.New("db: index not found")
	ErrIndexExists   = errors.New("db: index already exists")
)

// Op names the failing command in errors.
type Op string

// Store operations, named after their Redis commands. The SQLite backend
// reports the same names for the equivalent statements.
const (
	OpCreateIndex Op = "FT.CREATE"
	OpDropIndex   Op = "FT.DROPINDEX"
	OpIndexInfo   Op = "FT.INFO"
	OpSearch      Op = "FT.SEARCH"
	OpDel         Op = "DEL"
	OpHGetAll     Op = "HGETALL"
	OpHSet        Op = "HSET"
	OpExists      Op = "EXISTS"
	OpScan        Op = "SCAN"
	OpGet         Op = "GET"
	OpSet         Op = "SET"
	OpIncrBy      Op = "INCRBY"
	OpExpire      Op = "EXPIRE"
	OpPing        Op = "PING"
)

// Error is a failed store operation.
type Error struct {
	Backend string
	Op      Op
	Err     error
}

func (e *Error) Error() string {
	if e.Backend == "" {
		return string(e.Op) + ": " + e.Err.Error()
	}
	return e.Backend + " " + string(e.Op) + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// Wrap attributes err to op on backend. A nil err stays nil.
func Wrap(backend string, op Op, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Backend: backend, Op: op, Err: err}
}
