package stash

// Operation label values for metrics
const (
	OpCreateContainer = "create_container"
	OpDeposit         = "deposit"
	OpWithdraw        = "withdraw"
	OpExchange        = "exchange"
	OpMove            = "move"
	OpConsume         = "consume"
	OpSnapshot        = "snapshot"
)

// Engine operation label values for metrics
const (
	engineOpInsert      = "insert"
	engineOpInsertRange = "insert_range"
	engineOpRemove      = "remove"
	engineOpSwap        = "swap"
	engineOpModify      = "modify_stack_size"
)

// Error message constants
const (
	ErrMsgInvalidSlotCount    = "slot count must not be negative"
	ErrMsgFailedToLoad        = "failed to load container"
	ErrMsgFailedToPersist     = "failed to persist container"
	ErrMsgFailedToCreate      = "failed to create container"
	ErrMsgFailedToSerialize   = "failed to serialize container"
	ErrMsgMoveSameSlot        = "cannot move a stack onto itself"
	ErrMsgFailedToPublish     = "Failed to publish event"
	ErrMsgContainerLoadFailed = "Failed to load container"
)

// Log message constants
const (
	LogMsgContainerCreated = "Container created"
	LogMsgDepositDone      = "Deposit completed"
	LogMsgWithdrawDone     = "Withdraw completed"
	LogMsgExchangeDone     = "Exchange completed"
	LogMsgMoveDone         = "Move completed"
	LogMsgConsumeDone      = "Consume completed"
)
