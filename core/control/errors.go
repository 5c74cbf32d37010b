package control

import (
	"fmt"

	"github.com/kilianp07/gridbalance/core/model"
)

// ConfigurationError reports a valid request that the selected strategy
// cannot serve.
type ConfigurationError struct {
	Logic  model.ControlLogic
	Mode   model.OperationMode
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s/%s: %s", e.Logic, e.Mode, e.Reason)
}

const reasonMultipleAssets = "rule-based control cannot handle multiple flexible assets"
