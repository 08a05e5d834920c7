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

func scalar(name string, t opcua.TypeID) method.Argument {
	return method.Argument{Name: name, DataType: t, ValueRank: method.Scalar}
}

func structure(name string, rank int32, alloc func() opcua.Structure) method.Argument {
	return method.Argument{Name: name, DataType: opcua.TypeExtensionObject, ValueRank: rank, New: alloc}
}

func newRegistrationParameters() opcua.Structure { return &RegistrationParameters{} }
func newRegisterNodesResult() opcua.Structure    { return &RegisterNodesResult{} }
func newApplyResult() opcua.Structure            { return &ApplyResult{} }
func newTransferResultData() opcua.Structure     { return &TransferResultData{} }

// FDI7 method signatures.
var (
	LogAuditTrailMessage = method.Descriptor{
		Name:   "LogAuditTrailMessage",
		NodeID: FDINode(AuditTrailServiceType_LogAuditTrailMessage),
		Inputs: []method.Argument{scalar("message", opcua.TypeString)},
	}

	GetEditContext = method.Descriptor{
		Name:    "GetEditContext",
		NodeID:  FDINode(EditContextType_GetEditContext),
		Inputs:  []method.Argument{scalar("nodeId", opcua.TypeString)},
		Outputs: []method.Argument{scalar("editContextId", opcua.TypeString), scalar("getEditContextError", opcua.TypeInt32)},
	}

	RegisterNodes = method.Descriptor{
		Name:   "RegisterNodes",
		NodeID: FDINode(EditContextType_RegisterNodes),
		Inputs: []method.Argument{
			scalar("editContextId", opcua.TypeString),
			structure("nodesToRegister", method.Array, newRegistrationParameters),
		},
		Outputs: []method.Argument{structure("registerNodesStatus", method.Scalar, newRegisterNodesResult)},
	}

	Apply = method.Descriptor{
		Name:    "Apply",
		NodeID:  FDINode(EditContextType_Apply),
		Inputs:  []method.Argument{scalar("editContextId", opcua.TypeString)},
		Outputs: []method.Argument{structure("applyStatus", method.Scalar, newApplyResult)},
	}

	Reset = method.Descriptor{
		Name:    "Reset",
		NodeID:  FDINode(EditContextType_Reset),
		Inputs:  []method.Argument{scalar("editContextId", opcua.TypeString)},
		Outputs: []method.Argument{scalar("resetStatus", opcua.TypeInt32)},
	}

	Discard = method.Descriptor{
		Name:    "Discard",
		NodeID:  FDINode(EditContextType_Discard),
		Inputs:  []method.Argument{scalar("editContextId", opcua.TypeString)},
		Outputs: []method.Argument{scalar("discardStatus", opcua.TypeInt32)},
	}

	InvokeAction = method.Descriptor{
		Name:    "InvokeAction",
		NodeID:  FDINode(ActionServiceType_InvokeAction),
		Inputs:  []method.Argument{scalar("actionName", opcua.TypeString), scalar("methodArguments", opcua.TypeString)},
		Outputs: []method.Argument{scalar("actionNodeId", opcua.TypeNodeID), scalar("invokeActionError", opcua.TypeInt32)},
	}

	RespondAction = method.Descriptor{
		Name:    "RespondAction",
		NodeID:  FDINode(ActionServiceType_RespondAction),
		Inputs:  []method.Argument{scalar("actionNodeId", opcua.TypeNodeID), scalar("response", opcua.TypeString)},
		Outputs: []method.Argument{scalar("respondActionError", opcua.TypeInt32)},
	}

	AbortAction = method.Descriptor{
		Name:    "AbortAction",
		NodeID:  FDINode(ActionServiceType_AbortAction),
		Inputs:  []method.Argument{scalar("actionNodeId", opcua.TypeNodeID)},
		Outputs: []method.Argument{scalar("abortActionError", opcua.TypeInt32)},
	}

	InitDirectAccess = method.Descriptor{
		Name:    "InitDirectAccess",
		NodeID:  FDINode(DirectDeviceAccessType_InitDirectAccess),
		Inputs:  []method.Argument{scalar("context", opcua.TypeString)},
		Outputs: []method.Argument{scalar("initDirectAccessError", opcua.TypeInt32)},
	}

	Transfer = method.Descriptor{
		Name:    "Transfer",
		NodeID:  FDINode(DirectDeviceAccessType_Transfer),
		Inputs:  []method.Argument{scalar("sendData", opcua.TypeString)},
		Outputs: []method.Argument{scalar("receiveData", opcua.TypeString)},
	}

	EndDirectAccess = method.Descriptor{
		Name:    "EndDirectAccess",
		NodeID:  FDINode(DirectDeviceAccessType_EndDirectAccess),
		Inputs:  []method.Argument{scalar("context", opcua.TypeString)},
		Outputs: []method.Argument{scalar("endDirectAccessError", opcua.TypeInt32)},
	}
)

// DI method signatures.
var (
	InitLock = method.Descriptor{
		Name:    "InitLock",
		NodeID:  DINode(LockingServicesType_InitLock),
		Inputs:  []method.Argument{scalar("context", opcua.TypeString)},
		Outputs: []method.Argument{scalar("initLockStatus", opcua.TypeInt32)},
	}

	RenewLock = method.Descriptor{
		Name:    "RenewLock",
		NodeID:  DINode(LockingServicesType_RenewLock),
		Outputs: []method.Argument{scalar("renewLockStatus", opcua.TypeInt32)},
	}

	ExitLock = method.Descriptor{
		Name:    "ExitLock",
		NodeID:  DINode(LockingServicesType_ExitLock),
		Outputs: []method.Argument{scalar("exitLockStatus", opcua.TypeInt32)},
	}

	BreakLock = method.Descriptor{
		Name:    "BreakLock",
		NodeID:  DINode(LockingServicesType_BreakLock),
		Outputs: []method.Argument{scalar("breakLockStatus", opcua.TypeInt32)},
	}

	TransferToDevice = method.Descriptor{
		Name:    "TransferToDevice",
		NodeID:  DINode(TransferServicesType_TransferToDevice),
		Outputs: []method.Argument{scalar("transferId", opcua.TypeInt32), scalar("initTransferStatus", opcua.TypeInt32)},
	}

	TransferFromDevice = method.Descriptor{
		Name:    "TransferFromDevice",
		NodeID:  DINode(TransferServicesType_TransferFromDevice),
		Outputs: []method.Argument{scalar("transferId", opcua.TypeInt32), scalar("initTransferStatus", opcua.TypeInt32)},
	}

	FetchTransferResultData = method.Descriptor{
		Name:   "FetchTransferResultData",
		NodeID: DINode(TransferServicesType_FetchTransferResultData),
		Inputs: []method.Argument{
			scalar("transferId", opcua.TypeInt32),
			scalar("sequenceNumber", opcua.TypeInt32),
			scalar("maxParameterResultsToReturn", opcua.TypeInt32),
			scalar("omitGoodResults", opcua.TypeBoolean),
		},
		Outputs: []method.Argument{structure("fetchResultData", method.Scalar, newTransferResultData)},
	}
)

// Descriptors returns every DI and FDI method signature.
func Descriptors() []method.Descriptor {
	return []method.Descriptor{
		LogAuditTrailMessage,
		GetEditContext,
		RegisterNodes,
		Apply,
		Reset,
		Discard,
		InvokeAction,
		RespondAction,
		AbortAction,
		InitDirectAccess,
		Transfer,
		EndDirectAccess,
		InitLock,
		RenewLock,
		ExitLock,
		BreakLock,
		TransferToDevice,
		TransferFromDevice,
		FetchTransferResultData,
	}
}

// NewMethods creates one unbound adapter per descriptor.
func NewMethods(opts ...method.Option) ([]*method.Method, error) {
	descs := Descriptors()
	methods := make([]*method.Method, 0, len(descs))
	for _, desc := range descs {
		m, err := method.New(desc, opts...)
		if err != nil {
			return nil, errors.Wrapf(err, "di: %s", desc.Name)
		}
		methods = append(methods, m)
	}
	return methods, nil
}

// Register creates the adapters and adds them to reg.
func Register(reg *method.Registry, opts ...method.Option) error {
	methods, err := NewMethods(opts...)
	if err != nil {
		return err
	}
	for _, m := range methods {
		if err := reg.Register(m); err != nil {
			return err
		}
	}
	return nil
}
