package akv

import "errors"

// Error taxonomy. Handlers map these to HTTP statuses instead of
// collapsing every failure into a generic message.
var (
	// validation
	ErrBadEmail      = errors.New("invalid email address")
	ErrBadAmount     = errors.New("amount must be positive")
	ErrBadPlace      = errors.New("queue number cannot be less than 1")
	ErrBadPercent    = errors.New("percent must be between 0 and 100")
	ErrEmptyPassword = errors.New("password cannot be empty")

	// state conflicts
	ErrUserExists         = errors.New("user with this email already exists")
	ErrQueueDuplicate     = errors.New("user is already queued for this offering")
	ErrQueueFull          = errors.New("the offering queue has no places left")
	ErrAlreadyParticipant = errors.New("user already participates in this offering")
	ErrWalletBound        = errors.New("wallet address can only be changed by an administrator")
	ErrContractExists     = errors.New("smart contract address is already registered")
	ErrInviterCycle       = errors.New("inviter assignment would create a cycle")

	// resource absence
	ErrUserNotFound      = errors.New("user does not exist")
	ErrIdoNotFound       = errors.New("offering does not exist")
	ErrCoinNotFound      = errors.New("coin does not exist")
	ErrTokenNotFound     = errors.New("reset token does not exist")
	ErrWalletNotBound    = errors.New("user has no bound metamask wallet")
	ErrMainWalletMissing = errors.New("platform reserve wallet does not exist")
	ErrNotInQueue        = errors.New("user is not queued for this offering")
	ErrNoTransactions    = errors.New("no pending transactions")
	ErrNoPermanentPlace  = errors.New("user holds no permanent queue place")

	// authorization
	ErrPermissionDenied = errors.New("user lacks permission for this operation")
	ErrInviterForbidden = errors.New("invite code owner cannot invite users")
	ErrInviterUnknown   = errors.New("invite code owner does not exist")
	ErrLoginFailed      = errors.New("check the credentials provided")

	// business rules
	ErrCommissionCeiling   = errors.New("upline shares exceed the commission ceiling")
	ErrInsufficientFunds   = errors.New("user has insufficient funds")
	ErrInsufficientReserve = errors.New("platform reserve has insufficient funds")
	ErrHoldLocked          = errors.New("withdrawal would break into held funds")
	ErrQueueIneligible     = errors.New("queue place does not allow participation")
	ErrAllocationExceeded  = errors.New("user allocations exceed the offering pool")
	ErrAllocationDrained   = errors.New("the offering allocation is fully distributed")
	ErrManualQueue         = errors.New("the queue for this offering is assigned manually")
	ErrWithoutPayDisabled  = errors.New("participants require the without-pay flag")
	ErrQuoteTakeoff        = errors.New("the quote coin cannot be withdrawn this way")
)
