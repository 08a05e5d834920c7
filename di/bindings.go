// Copyright 2025 Edgeo SCADA
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package di

import (
	"github.com/pkg/errors"

	opcua "github.com/edgeo-scada/opcua-di"
	"github.com/edgeo-scada/opcua-di/method"
)

// Typed handlers. Inputs arrive by value; outputs are pointers to variables
// seeded from the current output slots and copied back after the handler
// returns, whatever status it reports.
type (
	LogAuditTrailMessageHandler func(c *method.Call, message string) opcua.StatusCode

	GetEditContextHandler func(c *method.Call, nodeID string, editContextID *string, getEditContextError *int32) opcua.StatusCode

	RegisterNodesHandler func(c *method.Call, editContextID string, nodesToRegister []RegistrationParameters, status *RegisterNodesResult) opcua.StatusCode

	ApplyHandler func(c *method.Call, editContextID string, status *ApplyResult) opcua.StatusCode

	// EditContextHandler serves Reset and Discard.
	EditContextHandler func(c *method.Call, editContextID string, status *int32) opcua.StatusCode

	InvokeActionHandler func(c *method.Call, actionName, methodArguments string, actionNodeID *opcua.NodeID, invokeActionError *int32) opcua.StatusCode

	RespondActionHandler func(c *method.Call, actionNodeID opcua.NodeID, response string, respondActionError *int32) opcua.StatusCode

	AbortActionHandler func(c *method.Call, actionNodeID opcua.NodeID, abortActionError *int32) opcua.StatusCode

	// ContextStatusHandler serves InitDirectAccess, EndDirectAccess and InitLock.
	ContextStatusHandler func(c *method.Call, context string, status *int32) opcua.StatusCode

	TransferHandler func(c *method.Call, sendData string, receiveData *string) opcua.StatusCode

	// StatusHandler serves RenewLock, ExitLock and BreakLock.
	StatusHandler func(c *method.Call, status *int32) opcua.StatusCode

	// InitTransferHandler serves TransferToDevice and TransferFromDevice.
	InitTransferHandler func(c *method.Call, transferID *int32, initTransferStatus *int32) opcua.StatusCode

	FetchTransferResultDataHandler func(c *method.Call, transferID, sequenceNumber, maxParameterResultsToReturn int32, omitGoodResults bool, result *TransferResultData) opcua.StatusCode
)

// checkMethod verifies that m was built from a descriptor with the given
// name and arity.
func checkMethod(m *method.Method, want ...method.Descriptor) error {
	got := m.Descriptor()
	for _, d := range want {
		if got.Name == d.Name && len(got.Inputs) == len(d.Inputs) && len(got.Outputs) == len(d.Outputs) {
			return nil
		}
	}
	return errors.Wrapf(method.ErrWrongMethod, "%s", got.Name)
}

// BindLogAuditTrailMessage binds h to a LogAuditTrailMessage method.
func BindLogAuditTrailMessage(m *method.Method, h LogAuditTrailMessageHandler) error {
	if err := checkMethod(m, LogAuditTrailMessage); err != nil {
		return err
	}
	m.Bind(func(c *method.Call) opcua.StatusCode {
		return h(c, method.In[string](c, 0))
	})
	return nil
}

// BindGetEditContext binds h to a GetEditContext method.
func BindGetEditContext(m *method.Method, h GetEditContextHandler) error {
	if err := checkMethod(m, GetEditContext); err != nil {
		return err
	}
	m.Bind(func(c *method.Call) opcua.StatusCode {
		editContextID := method.Out[string](c, 0)
		getEditContextError := method.Out[int32](c, 1)
		status := h(c, method.In[string](c, 0), &editContextID, &getEditContextError)
		c.Outputs[0] = editContextID
		c.Outputs[1] = getEditContextError
		return status
	})
	return nil
}

// BindRegisterNodes binds h to a RegisterNodes method.
func BindRegisterNodes(m *method.Method, h RegisterNodesHandler) error {
	if err := checkMethod(m, RegisterNodes); err != nil {
		return err
	}
	m.Bind(func(c *method.Call) opcua.StatusCode {
		in := method.In[[]opcua.Structure](c, 1)
		nodes := make([]RegistrationParameters, len(in))
		for i, s := range in {
			nodes[i] = *s.(*RegistrationParameters)
		}
		var result RegisterNodesResult
		if seeded, ok := method.Out[opcua.Structure](c, 0).(*RegisterNodesResult); ok {
			result = *seeded
		}
		status := h(c, method.In[string](c, 0), nodes, &result)
		c.Outputs[0] = &result
		return status
	})
	return nil
}

// BindApply binds h to an Apply method.
func BindApply(m *method.Method, h ApplyHandler) error {
	if err := checkMethod(m, Apply); err != nil {
		return err
	}
	m.Bind(func(c *method.Call) opcua.StatusCode {
		var result ApplyResult
		if seeded, ok := method.Out[opcua.Structure](c, 0).(*ApplyResult); ok {
			result = *seeded
		}
		status := h(c, method.In[string](c, 0), &result)
		c.Outputs[0] = &result
		return status
	})
	return nil
}

// BindEditContext binds h to a Reset or Discard method.
func BindEditContext(m *method.Method, h EditContextHandler) error {
	if err := checkMethod(m, Reset, Discard); err != nil {
		return err
	}
	m.Bind(func(c *method.Call) opcua.StatusCode {
		return bindString(c, h)
	})
	return nil
}

// BindReset binds h to a Reset method.
func BindReset(m *method.Method, h EditContextHandler) error {
	if err := checkMethod(m, Reset); err != nil {
		return err
	}
	return BindEditContext(m, h)
}

// BindDiscard binds h to a Discard method.
func BindDiscard(m *method.Method, h EditContextHandler) error {
	if err := checkMethod(m, Discard); err != nil {
		return err
	}
	return BindEditContext(m, h)
}

// BindInvokeAction binds h to an InvokeAction method.
func BindInvokeAction(m *method.Method, h InvokeActionHandler) error {
	if err := checkMethod(m, InvokeAction); err != nil {
		return err
	}
	m.Bind(func(c *method.Call) opcua.StatusCode {
		actionNodeID := method.Out[opcua.NodeID](c, 0)
		invokeActionError := method.Out[int32](c, 1)
		status := h(c, method.In[string](c, 0), method.In[string](c, 1), &actionNodeID, &invokeActionError)
		c.Outputs[0] = actionNodeID
		c.Outputs[1] = invokeActionError
		return status
	})
	return nil
}

// BindRespondAction binds h to a RespondAction method.
func BindRespondAction(m *method.Method, h RespondActionHandler) error {
	if err := checkMethod(m, RespondAction); err != nil {
		return err
	}
	m.Bind(func(c *method.Call) opcua.StatusCode {
		respondActionError := method.Out[int32](c, 0)
		status := h(c, method.In[opcua.NodeID](c, 0), method.In[string](c, 1), &respondActionError)
		c.Outputs[0] = respondActionError
		return status
	})
	return nil
}

// BindAbortAction binds h to an AbortAction method.
func BindAbortAction(m *method.Method, h AbortActionHandler) error {
	if err := checkMethod(m, AbortAction); err != nil {
		return err
	}
	m.Bind(func(c *method.Call) opcua.StatusCode {
		abortActionError := method.Out[int32](c, 0)
		status := h(c, method.In[opcua.NodeID](c, 0), &abortActionError)
		c.Outputs[0] = abortActionError
		return status
	})
	return nil
}

// BindContextStatus binds h to an InitDirectAccess, EndDirectAccess or
// InitLock method.
func BindContextStatus(m *method.Method, h ContextStatusHandler) error {
	if err := checkMethod(m, InitDirectAccess, EndDirectAccess, InitLock); err != nil {
		return err
	}
	m.Bind(func(c *method.Call) opcua.StatusCode {
		return bindString(c, EditContextHandler(h))
	})
	return nil
}

// BindTransfer binds h to a Transfer method.
func BindTransfer(m *method.Method, h TransferHandler) error {
	if err := checkMethod(m, Transfer); err != nil {
		return err
	}
	m.Bind(func(c *method.Call) opcua.StatusCode {
		receiveData := method.Out[string](c, 0)
		status := h(c, method.In[string](c, 0), &receiveData)
		c.Outputs[0] = receiveData
		return status
	})
	return nil
}

// BindStatus binds h to a RenewLock, ExitLock or BreakLock method.
func BindStatus(m *method.Method, h StatusHandler) error {
	if err := checkMethod(m, RenewLock, ExitLock, BreakLock); err != nil {
		return err
	}
	m.Bind(func(c *method.Call) opcua.StatusCode {
		result := method.Out[int32](c, 0)
		status := h(c, &result)
		c.Outputs[0] = result
		return status
	})
	return nil
}

// BindInitTransfer binds h to a TransferToDevice or TransferFromDevice
// method.
func BindInitTransfer(m *method.Method, h InitTransferHandler) error {
	if err := checkMethod(m, TransferToDevice, TransferFromDevice); err != nil {
		return err
	}
	m.Bind(func(c *method.Call) opcua.StatusCode {
		transferID := method.Out[int32](c, 0)
		initTransferStatus := method.Out[int32](c, 1)
		status := h(c, &transferID, &initTransferStatus)
		c.Outputs[0] = transferID
		c.Outputs[1] = initTransferStatus
		return status
	})
	return nil
}

// BindFetchTransferResultData binds h to a FetchTransferResultData method.
func BindFetchTransferResultData(m *method.Method, h FetchTransferResultDataHandler) error {
	if err := checkMethod(m, FetchTransferResultData); err != nil {
		return err
	}
	m.Bind(func(c *method.Call) opcua.StatusCode {
		var result TransferResultData
		if seeded, ok := method.Out[opcua.Structure](c, 0).(*TransferResultData); ok {
			result = *seeded
		}
		status := h(c,
			method.In[int32](c, 0),
			method.In[int32](c, 1),
			method.In[int32](c, 2),
			method.In[bool](c, 3),
			&result)
		c.Outputs[0] = &result
		return status
	})
	return nil
}

// bindString runs a handler with one string input and one Int32 output.
func bindString(c *method.Call, h EditContextHandler) opcua.StatusCode {
	result := method.Out[int32](c, 0)
	status := h(c, method.In[string](c, 0), &result)
	c.Outputs[0] = result
	return status
}
