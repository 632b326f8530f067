package port

import "context"

// TxRepositories bundles repositories bound to one database transaction
// for the duration of a unit-of-work callback.
type TxRepositories struct {
	Invitations InvitationRepository
	Subjects    SubjectRepository
	Roles       RoleRepository
}

// TransactionManager executes a callback within a single database
// transaction. The callback works against transaction-scoped repositories;
// a non-nil error rolls every write back.
type TransactionManager interface {
	WithinTransaction(ctx context.Context, fn func(repos TxRepositories) error) error
}
