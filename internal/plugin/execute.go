package plugin

import (
	"context"
	"errors"
	"fmt"

	"github.com/specialistvlad/yunosbridge/internal/callback"
	"github.com/specialistvlad/yunosbridge/internal/ctxlog"
)

// Outcome is what happened when an action was executed.
type Outcome int

const (
	// Handled means the action ran. Its result, if any, went through the
	// callback context.
	Handled Outcome = iota
	// InvalidAction means no handler exists or the handler rejected the call.
	InvalidAction
	// Fault means the handler failed or panicked.
	Fault
	// ClassNotFound means no plugin could serve the service. Execute never
	// returns it; the registry does.
	ClassNotFound
)

func (o Outcome) String() string {
	switch o {
	case Handled:
		return "handled"
	case InvalidAction:
		return "invalid_action"
	case Fault:
		return "fault"
	case ClassNotFound:
		return "class_not_found"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// Execute looks action up in actions and runs it. Panics are recovered and
// reported as a Fault together with the recovered value.
func Execute(ctx context.Context, actions Actions, action string, cb *callback.Context, args Args) (outcome Outcome, err error) {
	logger := ctxlog.FromContext(ctx)

	fn, ok := actions[action]
	if !ok {
		logger.Error("No such action.", "action", action)
		return InvalidAction, nil
	}

	defer func() {
		if r := recover(); r != nil {
			outcome = Fault
			err = fmt.Errorf("action %q panicked: %v", action, r)
		}
	}()

	if err := fn(ctx, cb, args); err != nil {
		if errors.Is(err, ErrInvalidAction) {
			return InvalidAction, err
		}
		return Fault, err
	}
	return Handled, nil
}
