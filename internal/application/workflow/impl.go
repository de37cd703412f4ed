package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aflo-dev/aflo/internal/application/broker"
	"github.com/aflo-dev/aflo/internal/application/port"
	"github.com/aflo-dev/aflo/internal/application/validator"
	"github.com/aflo-dev/aflo/internal/domain/apperr"
	"github.com/aflo-dev/aflo/internal/domain/entity"
	"github.com/aflo-dev/aflo/internal/domain/task"
	domainwf "github.com/aflo-dev/aflo/internal/domain/workflow"
)

// HookError reports which hook failed.
type HookError struct {
	Timing string
	Hook   entity.HookDescriptor
	Err    error
}

func (e *HookError) Error() string {
	return fmt.Sprintf("%s hook %s.%s: %v", e.Timing, e.Hook.BrokerClass, e.Hook.BrokerMethod, e.Err)
}

func (e *HookError) Unwrap() error { return e.Err }

type engineImpl struct {
	tickets  port.TicketRepository
	defs     port.DefinitionReader
	registry *broker.Registry
	cfg      Config
	logger   *zap.Logger
	recorder Recorder
	now      func() time.Time
	newID    func() string
}

// EngineOption configures the engine
type EngineOption func(*engineImpl)

// WithRecorder reports transition outcomes and hook failures to r
func WithRecorder(r Recorder) EngineOption {
	return func(e *engineImpl) {
		e.recorder = r
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) EngineOption {
	return func(e *engineImpl) {
		e.now = now
	}
}

// WithIDGenerator overrides how new workflow row ids are made
func WithIDGenerator(newID func() string) EngineOption {
	return func(e *engineImpl) {
		e.newID = newID
	}
}

// NewEngine creates a new transition engine
func NewEngine(
	tickets port.TicketRepository,
	defs port.DefinitionReader,
	registry *broker.Registry,
	cfg Config,
	logger *zap.Logger,
	opts ...EngineOption,
) Engine {
	if cfg.ErrorStatusCode == "" {
		cfg.ErrorStatusCode = entity.StatusCodeError
	}
	e := &engineImpl{
		tickets:  tickets,
		defs:     defs,
		registry: registry,
		cfg:      cfg,
		logger:   logger,
		recorder: nopRecorder{},
		now:      time.Now,
		newID:    uuid.NewString,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

type boundTicket struct {
	ticket   *entity.Ticket
	template *entity.TicketTemplate
	pattern  *entity.WorkflowPattern
}

type transitionPlan struct {
	boundTicket
	active   *entity.Workflow
	incoming *entity.Workflow
}

// ---- create ----

func (e *engineImpl) PrepareCreate(ctx context.Context, caller entity.Caller, req CreateRequest) error {
	_, _, err := e.planCreate(ctx, req)
	return err
}

func (e *engineImpl) planCreate(ctx context.Context, req CreateRequest) (*entity.TicketTemplate, *entity.WorkflowPattern, error) {
	if req.TicketTemplateID == "" {
		return nil, nil, apperr.InvalidParameterValue("ticket_template_id is required")
	}
	tmpl, pattern, err := e.loadDefinitions(ctx, req.TicketTemplateID)
	if err != nil {
		return nil, nil, err
	}

	first := tmpl.Contents.FirstStatusCode
	if req.StatusCode != "" && req.StatusCode != first {
		return nil, nil, apperr.InvalidParameterValue("status_code must be %s, got %s", first, req.StatusCode)
	}
	if _, ok := pattern.Contents.Status(first); !ok {
		return nil, nil, apperr.InvalidParameterValue("template %s starts in undeclared status %s", tmpl.ID, first)
	}
	if err := validator.Validate(tmpl.Contents.Schema(entity.OperationCreate), req.TicketDetail); err != nil {
		return nil, nil, err
	}
	return tmpl, pattern, nil
}

func (e *engineImpl) Create(ctx context.Context, caller entity.Caller, req CreateRequest) (*entity.Ticket, error) {
	tmpl, pattern, err := e.planCreate(ctx, req)
	if err != nil {
		e.recorder.TransitionDone(entity.OperationCreate, resultOf(err))
		return nil, err
	}

	first := tmpl.Contents.FirstStatusCode
	before, after, err := e.planHooks(tmpl, first)
	if err != nil {
		e.recorder.TransitionDone(entity.OperationCreate, resultOf(err))
		return nil, err
	}

	now := e.now()
	ticketID := req.TicketID
	if ticketID == "" {
		ticketID = uuid.NewString()
	}
	detail := req.TicketDetail
	if detail == nil {
		detail = entity.Document{}
	}
	ticket := &entity.Ticket{
		ID:               ticketID,
		TicketTemplateID: tmpl.ID,
		TicketType:       tmpl.TicketType,
		TargetID:         req.TargetID,
		TenantID:         caller.TenantID,
		TenantName:       caller.TenantName,
		OwnerID:          caller.UserID,
		OwnerName:        caller.UserName,
		OwnerAt:          now,
		StatusCode:       first,
		TicketDetail:     detail,
		ActionDetail:     entity.Document{},
	}

	inv := &broker.Invocation{
		Operation: entity.OperationCreate,
		Ticket:    ticket,
		Template:  tmpl,
		Caller:    caller,
		ToStatus:  first,
	}
	schema := tmpl.Contents.Schema(entity.OperationCreate)

	if err := e.runHooks(ctx, entity.TimingBefore, before, inv, schema); err != nil {
		e.recorder.TransitionDone(entity.OperationCreate, resultOf(err))
		return nil, err
	}

	entered := e.enteredRow(nil, ticket.ID, pattern.Contents, first, "", now)
	rows := append([]*entity.Workflow{entered}, e.candidateRows(ticket.ID, pattern.Contents, first)...)
	if err := e.tickets.CreateTicket(ctx, ticket, rows); err != nil {
		e.recorder.TransitionDone(entity.OperationCreate, resultOf(err))
		return nil, fmt.Errorf("create ticket: %w", err)
	}

	e.logger.Info("Ticket created",
		zap.String("ticket_id", ticket.ID),
		zap.String("ticket_template_id", tmpl.ID),
		zap.String("status_code", first),
		zap.String("owner_id", caller.UserID))

	result := e.runAfterHooks(ctx, after, inv, schema, entered)
	e.recorder.TransitionDone(entity.OperationCreate, result)

	return e.reload(ctx, ticket.ID)
}

// ---- transition ----

func (e *engineImpl) PrepareTransition(ctx context.Context, caller entity.Caller, req TransitionRequest) error {
	_, err := e.planTransition(ctx, caller, req)
	return err
}

func (e *engineImpl) planTransition(ctx context.Context, caller entity.Caller, req TransitionRequest) (*transitionPlan, error) {
	bound, err := e.loadTicket(ctx, caller, req.TicketID)
	if err != nil {
		return nil, err
	}
	ticket := bound.ticket
	contents := bound.pattern.Contents

	if req.LastStatusCode != ticket.StatusCode {
		return nil, apperr.Conflict("ticket %s is in status %s, not %s", ticket.ID, ticket.StatusCode, req.LastStatusCode)
	}
	if contents.IsTerminal(ticket.StatusCode) {
		return nil, apperr.InvalidParameterValue("ticket %s is in terminal status %s", ticket.ID, ticket.StatusCode)
	}

	machine, err := BuildTicketStateMachine(contents, ticket.StatusCode)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "pattern %s is inconsistent", bound.pattern.Code)
	}
	if err := machine.Fire(entity.ContextWithCaller(ctx, caller), domainwf.State(req.NextStatusCode)); err != nil {
		if errors.Is(err, domainwf.ErrGuardFailed) {
			return nil, apperr.Forbidden("caller may not move ticket %s from %s to %s", ticket.ID, req.LastStatusCode, req.NextStatusCode)
		}
		return nil, apperr.InvalidParameterValue("no transition from %s to %s", req.LastStatusCode, req.NextStatusCode)
	}

	active, err := e.tickets.GetActiveWorkflow(ctx, ticket.ID)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return nil, apperr.Conflict("ticket %s has no active status", ticket.ID)
		}
		return nil, fmt.Errorf("load active workflow: %w", err)
	}
	if active.StatusCode != req.LastStatusCode {
		return nil, apperr.Conflict("active workflow of ticket %s is %s, not %s", ticket.ID, active.StatusCode, req.LastStatusCode)
	}
	if req.LastWorkflowID != "" && active.ID != req.LastWorkflowID {
		return nil, apperr.Conflict("workflow %s is not the active status of ticket %s", req.LastWorkflowID, ticket.ID)
	}

	incoming, err := e.resolveIncoming(ctx, ticket.ID, req)
	if err != nil {
		return nil, err
	}

	return &transitionPlan{boundTicket: *bound, active: active, incoming: incoming}, nil
}

func (e *engineImpl) resolveIncoming(ctx context.Context, ticketID string, req TransitionRequest) (*entity.Workflow, error) {
	if req.NextWorkflowID == "" {
		rows, err := e.tickets.ListWorkflows(ctx, ticketID)
		if err != nil {
			return nil, fmt.Errorf("list workflows: %w", err)
		}
		for _, w := range rows {
			if w.IsCandidate() && w.StatusCode == req.NextStatusCode {
				return w, nil
			}
		}
		return nil, nil
	}

	w, err := e.tickets.GetWorkflow(ctx, req.NextWorkflowID)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return nil, apperr.InvalidParameterValue("next_workflow_id %s does not exist", req.NextWorkflowID)
		}
		return nil, fmt.Errorf("load next workflow: %w", err)
	}
	if w.TicketID != ticketID || w.StatusCode != req.NextStatusCode {
		return nil, apperr.InvalidParameterValue("workflow %s is not a %s candidate of ticket %s", w.ID, req.NextStatusCode, ticketID)
	}
	if w.Deleted || !w.IsCandidate() {
		return nil, apperr.Conflict("workflow %s was already taken", w.ID)
	}
	return w, nil
}

func (e *engineImpl) Transition(ctx context.Context, caller entity.Caller, req TransitionRequest) (*entity.Ticket, error) {
	plan, err := e.planTransition(ctx, caller, req)
	if err != nil {
		e.recorder.TransitionDone(entity.OperationUpdate, resultOf(err))
		return nil, err
	}
	ticket := plan.ticket
	next := req.NextStatusCode

	before, after, err := e.planHooks(plan.template, next)
	if err != nil {
		e.recorder.TransitionDone(entity.OperationUpdate, resultOf(err))
		return nil, err
	}

	inv := &broker.Invocation{
		Operation:      entity.OperationUpdate,
		Ticket:         ticket,
		Template:       plan.template,
		Caller:         caller,
		FromStatus:     req.LastStatusCode,
		ToStatus:       next,
		AdditionalData: req.AdditionalData,
	}
	schema := plan.template.Contents.Schema(entity.OperationUpdate)

	if err := e.runHooks(ctx, entity.TimingBefore, before, inv, schema); err != nil {
		e.recorder.TransitionDone(entity.OperationUpdate, resultOf(err))
		return nil, err
	}

	now := e.now()
	edge, _ := plan.pattern.Contents.Edge(req.LastStatusCode, next)
	entered := e.enteredRow(plan.incoming, ticket.ID, plan.pattern.Contents, next, edge.GrantRole, now)

	patch := port.TransitionPatch{
		TicketID:           ticket.ID,
		ExpectedStatusCode: req.LastStatusCode,
		StatusCode:         next,
		ActionDetail:       ticket.ActionDetail,
		Confirm: &port.WorkflowConfirmation{
			ID:             plan.active.ID,
			ConfirmerID:    caller.UserID,
			ConfirmerName:  caller.UserName,
			ConfirmedAt:    now,
			AdditionalData: req.AdditionalData,
		},
	}
	if plan.incoming != nil {
		patch.Activate = entered
	} else {
		patch.Insert = append(patch.Insert, entered)
	}
	patch.Insert = append(patch.Insert, e.candidateRows(ticket.ID, plan.pattern.Contents, next)...)

	if err := e.tickets.SaveTransition(ctx, patch); err != nil {
		e.recorder.TransitionDone(entity.OperationUpdate, resultOf(err))
		return nil, fmt.Errorf("save transition: %w", err)
	}
	ticket.StatusCode = next

	e.logger.Info("Ticket transitioned",
		zap.String("ticket_id", ticket.ID),
		zap.String("from", req.LastStatusCode),
		zap.String("to", next),
		zap.String("confirmer_id", caller.UserID))

	result := e.runAfterHooks(ctx, after, inv, schema, entered)
	e.recorder.TransitionDone(entity.OperationUpdate, result)

	return e.reload(ctx, ticket.ID)
}

// ---- delete ----

func (e *engineImpl) PrepareDelete(ctx context.Context, caller entity.Caller, ticketID string) error {
	return e.checkDelete(ctx, caller, ticketID)
}

func (e *engineImpl) checkDelete(ctx context.Context, caller entity.Caller, ticketID string) error {
	ticket, err := e.tickets.GetTicket(ctx, ticketID)
	if err != nil {
		return err
	}
	if ticket.Deleted || !ticket.VisibleTo(caller) {
		return apperr.NotFound("ticket %s not found", ticketID)
	}
	if !caller.IsAdmin && !ticket.IsOwnedBy(caller) {
		return apperr.Forbidden("only the owner or an admin may delete ticket %s", ticketID)
	}
	return nil
}

func (e *engineImpl) Delete(ctx context.Context, caller entity.Caller, ticketID string) error {
	if err := e.checkDelete(ctx, caller, ticketID); err != nil {
		e.recorder.TransitionDone(entity.OperationDelete, resultOf(err))
		return err
	}
	if err := e.tickets.SoftDeleteTicketCascade(ctx, ticketID); err != nil {
		e.recorder.TransitionDone(entity.OperationDelete, resultOf(err))
		return fmt.Errorf("delete ticket: %w", err)
	}

	e.logger.Info("Ticket deleted",
		zap.String("ticket_id", ticketID),
		zap.String("user_id", caller.UserID))
	e.recorder.TransitionDone(entity.OperationDelete, ResultSuccess)
	return nil
}

// ---- tasks ----

func (e *engineImpl) Execute(ctx context.Context, t *task.Task) error {
	switch t.Operation {
	case task.OperationCreate:
		if _, err := e.tickets.GetTicket(ctx, t.TicketID); err == nil {
			e.logger.Info("Ticket already exists, skipping create task",
				zap.String("task_id", t.ID),
				zap.String("ticket_id", t.TicketID))
			return nil
		} else if apperr.KindOf(err) != apperr.KindNotFound {
			return err
		}
		_, err := e.Create(ctx, t.Caller, CreateRequestFromTask(t))
		return err

	case task.OperationUpdate:
		req := TransitionRequestFromTask(t)
		_, err := e.Transition(ctx, t.Caller, req)
		if err != nil && apperr.KindOf(err) == apperr.KindConflict && e.alreadyConfirmed(ctx, req.LastWorkflowID) {
			e.logger.Info("Outgoing workflow already confirmed, skipping update task",
				zap.String("task_id", t.ID),
				zap.String("ticket_id", t.TicketID),
				zap.String("workflow_id", req.LastWorkflowID))
			return nil
		}
		return err

	case task.OperationDelete:
		err := e.Delete(ctx, t.Caller, t.TicketID)
		if err != nil && apperr.KindOf(err) == apperr.KindNotFound {
			if ticket, gerr := e.tickets.GetTicket(ctx, t.TicketID); gerr == nil && ticket.Deleted {
				e.logger.Info("Ticket already deleted, skipping delete task",
					zap.String("task_id", t.ID),
					zap.String("ticket_id", t.TicketID))
				return nil
			}
		}
		return err

	default:
		return apperr.InvalidParameterValue("unknown task operation %q", t.Operation)
	}
}

func (e *engineImpl) alreadyConfirmed(ctx context.Context, workflowID string) bool {
	if workflowID == "" {
		return false
	}
	w, err := e.tickets.GetWorkflow(ctx, workflowID)
	return err == nil && w.Status == entity.WorkflowStatusConfirmed
}

// ---- shared steps ----

func (e *engineImpl) loadTicket(ctx context.Context, caller entity.Caller, ticketID string) (*boundTicket, error) {
	ticket, err := e.tickets.GetTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.Deleted || !ticket.VisibleTo(caller) {
		return nil, apperr.NotFound("ticket %s not found", ticketID)
	}

	tmpl, pattern, err := e.loadDefinitions(ctx, ticket.TicketTemplateID)
	if err != nil {
		return nil, err
	}
	return &boundTicket{ticket: ticket, template: tmpl, pattern: pattern}, nil
}

func (e *engineImpl) loadDefinitions(ctx context.Context, templateID string) (*entity.TicketTemplate, *entity.WorkflowPattern, error) {
	tmpl, err := e.defs.GetTemplate(ctx, templateID)
	if err != nil {
		return nil, nil, fmt.Errorf("load template %s: %w", templateID, err)
	}
	pattern, err := e.defs.GetPattern(ctx, tmpl.WorkflowPatternID)
	if err != nil {
		return nil, nil, fmt.Errorf("load pattern %s: %w", tmpl.WorkflowPatternID, err)
	}
	return tmpl, pattern, nil
}

func (e *engineImpl) planHooks(tmpl *entity.TicketTemplate, status string) (before, after []broker.Hook, err error) {
	before, err = e.registry.Plan(tmpl, entity.TimingBefore, status)
	if err != nil {
		return nil, nil, apperr.Wrap(apperr.KindInternal, err, "template %s has unresolvable before hooks", tmpl.ID)
	}
	after, err = e.registry.Plan(tmpl, entity.TimingAfter, status)
	if err != nil {
		return nil, nil, apperr.Wrap(apperr.KindInternal, err, "template %s has unresolvable after hooks", tmpl.ID)
	}
	return before, after, nil
}

// runHooks invokes hooks in order, validating before each flagged hook.
func (e *engineImpl) runHooks(ctx context.Context, timing string, hooks []broker.Hook, inv *broker.Invocation, schema []entity.ParamDescriptor) error {
	for _, h := range hooks {
		err := e.runHook(ctx, h, inv, schema)
		if err == nil {
			continue
		}
		e.recorder.HookFailed(timing, h.BrokerClass)
		e.logger.Warn("Hook failed",
			zap.String("timing", timing),
			zap.String("broker_class", h.BrokerClass),
			zap.String("broker_method", h.BrokerMethod),
			zap.String("ticket_id", inv.Ticket.ID),
			zap.Error(err))
		return &HookError{Timing: timing, Hook: h.HookDescriptor, Err: err}
	}
	return nil
}

func (e *engineImpl) runHook(ctx context.Context, h broker.Hook, inv *broker.Invocation, schema []entity.ParamDescriptor) error {
	if h.Validation {
		if err := h.Broker.GeneralParamCheck(schema, inv.Detail()); err != nil {
			return err
		}
	}
	return h.Method(ctx, inv)
}

// runAfterHooks runs the after phase and compensates on failure. The
// durable write that preceded it is never rolled back.
func (e *engineImpl) runAfterHooks(ctx context.Context, hooks []broker.Hook, inv *broker.Invocation, schema []entity.ParamDescriptor, entered *entity.Workflow) string {
	if len(hooks) == 0 {
		return ResultSuccess
	}

	err := e.runHooks(ctx, entity.TimingAfter, hooks, inv, schema)
	if err == nil {
		if err := e.tickets.UpdateActionDetail(ctx, inv.Ticket.ID, inv.Ticket.ActionDetail); err != nil {
			e.logger.Error("Failed to save action detail after hooks",
				zap.String("ticket_id", inv.Ticket.ID),
				zap.Error(err))
		}
		return ResultSuccess
	}

	var hookErr *HookError
	if !errors.As(err, &hookErr) {
		hookErr = &HookError{Timing: entity.TimingAfter, Err: err}
	}
	e.compensate(ctx, inv.Ticket, entered, hookErr)
	return ResultCompensated
}

// compensate moves the ticket to the error status in one write: the entered
// row is confirmed by the system, its candidates are retired and an error
// row recording the failed hook is added.
func (e *engineImpl) compensate(ctx context.Context, ticket *entity.Ticket, entered *entity.Workflow, hookErr *HookError) {
	now := e.now()
	message := hookErr.Err.Error()
	failure := entity.Document{
		entity.DetailKeyBrokerClass:  hookErr.Hook.BrokerClass,
		entity.DetailKeyBrokerMethod: hookErr.Hook.BrokerMethod,
		entity.DetailKeyMessage:      message,
	}
	actionDetail := ticket.ActionDetail.Merge(entity.Document{entity.DetailKeyError: message})

	errorRow := &entity.Workflow{
		ID:             e.newID(),
		TicketID:       ticket.ID,
		StatusCode:     e.cfg.ErrorStatusCode,
		StatusDetail:   entity.Document{"status_code": e.cfg.ErrorStatusCode},
		AdditionalData: failure,
	}
	errorRow.Confirm(e.cfg.SystemUserID, e.cfg.SystemUserName, now)

	patch := port.TransitionPatch{
		TicketID:           ticket.ID,
		ExpectedStatusCode: entered.StatusCode,
		StatusCode:         e.cfg.ErrorStatusCode,
		ActionDetail:       actionDetail,
		Insert:             []*entity.Workflow{errorRow},
	}
	if entered.IsCurrent() {
		patch.Confirm = &port.WorkflowConfirmation{
			ID:            entered.ID,
			ConfirmerID:   e.cfg.SystemUserID,
			ConfirmerName: e.cfg.SystemUserName,
			ConfirmedAt:   now,
		}
	}

	if err := e.tickets.SaveTransition(ctx, patch); err != nil {
		e.logger.Error("Failed to record after-hook compensation",
			zap.String("ticket_id", ticket.ID),
			zap.String("broker_class", hookErr.Hook.BrokerClass),
			zap.String("broker_method", hookErr.Hook.BrokerMethod),
			zap.NamedError("hook_error", hookErr.Err),
			zap.Error(err))
		return
	}

	ticket.StatusCode = e.cfg.ErrorStatusCode
	ticket.ActionDetail = actionDetail
	e.logger.Warn("Ticket moved to error after hook failure",
		zap.String("ticket_id", ticket.ID),
		zap.String("entered_status", entered.StatusCode),
		zap.String("broker_class", hookErr.Hook.BrokerClass),
		zap.String("broker_method", hookErr.Hook.BrokerMethod),
		zap.String("message", message))
}

// enteredRow prepares the destination row. Rows for terminal statuses are
// confirmed by the system immediately.
func (e *engineImpl) enteredRow(candidate *entity.Workflow, ticketID string, contents entity.PatternContents, status, targetRole string, now time.Time) *entity.Workflow {
	row := &entity.Workflow{
		ID:             e.newID(),
		TicketID:       ticketID,
		StatusCode:     status,
		TargetRole:     targetRole,
		AdditionalData: entity.Document{},
	}
	if candidate != nil {
		cp := *candidate
		row = &cp
	}
	row.StatusDetail = contents.Snapshot(status)

	if contents.IsTerminal(status) {
		row.Confirm(e.cfg.SystemUserID, e.cfg.SystemUserName, now)
	} else {
		row.Status = entity.WorkflowStatusCurrent
	}
	return row
}

// candidateRows materializes one future row per edge leaving status.
func (e *engineImpl) candidateRows(ticketID string, contents entity.PatternContents, status string) []*entity.Workflow {
	descriptor, ok := contents.Status(status)
	if !ok {
		return nil
	}
	rows := make([]*entity.Workflow, 0, len(descriptor.NextStatus))
	for _, next := range descriptor.NextStatus {
		rows = append(rows, &entity.Workflow{
			ID:             e.newID(),
			TicketID:       ticketID,
			Status:         entity.WorkflowStatusFuture,
			StatusCode:     next.StatusCode,
			StatusDetail:   contents.Snapshot(next.StatusCode),
			TargetRole:     next.GrantRole,
			AdditionalData: entity.Document{},
		})
	}
	return rows
}

func (e *engineImpl) reload(ctx context.Context, ticketID string) (*entity.Ticket, error) {
	ticket, err := e.tickets.GetTicket(ctx, ticketID)
	if err != nil {
		return nil, fmt.Errorf("reload ticket: %w", err)
	}
	rows, err := e.tickets.ListWorkflows(ctx, ticketID)
	if err != nil {
		return nil, fmt.Errorf("reload workflows: %w", err)
	}
	ticket.Workflows = make([]entity.Workflow, 0, len(rows))
	for _, w := range rows {
		ticket.Workflows = append(ticket.Workflows, *w)
	}
	return ticket, nil
}

func resultOf(err error) string {
	if apperr.KindOf(err) == apperr.KindInternal {
		return ResultFailed
	}
	return ResultRejected
}

type nopRecorder struct{}

func (nopRecorder) TransitionDone(string, string) {}
func (nopRecorder) HookFailed(string, string)     {}
