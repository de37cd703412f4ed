package entity

// Workflow row status values
const (
	WorkflowStatusFuture    = 0
	WorkflowStatusCurrent   = 1
	WorkflowStatusConfirmed = 2
)

// StatusCodeError is the implicit compensation status every pattern shares
const StatusCodeError = "error"

// Hook timings within a transition
const (
	TimingBefore = "before"
	TimingAfter  = "after"
)

// Ticket operations carried by tasks
const (
	OperationCreate = "create"
	OperationUpdate = "update"
	OperationDelete = "delete"
)

// Keys written into action_detail and additional_data by the engine
const (
	DetailKeyError        = "error"
	DetailKeyBrokerClass  = "broker_class"
	DetailKeyBrokerMethod = "broker_method"
	DetailKeyMessage      = "message"
)
