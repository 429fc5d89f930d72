// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package bullsharktest provides a go.uber.org/mock/gomock double for
// bullshark.CommitRule, in the shape mockgen would generate, for tests
// that need to control or assert on the consensus engine's interaction
// with its commit rule (e.g. error propagation) without exercising the
// real Bullshark algorithm.
package bullsharktest

import (
	"reflect"

	"go.uber.org/mock/gomock"

	"github.com/lunabft/narwhal-core/bullshark"
	"github.com/lunabft/narwhal-core/dag"
	"github.com/lunabft/narwhal-core/types"
)

var _ bullshark.CommitRule = (*MockCommitRule)(nil)

// MockCommitRule is a mock of the bullshark.CommitRule interface.
type MockCommitRule struct {
	ctrl     *gomock.Controller
	recorder *MockCommitRuleMockRecorder
}

// MockCommitRuleMockRecorder is the mock recorder for MockCommitRule.
type MockCommitRuleMockRecorder struct {
	mock *MockCommitRule
}

// NewMockCommitRule returns a new mock bound to ctrl.
func NewMockCommitRule(ctrl *gomock.Controller) *MockCommitRule {
	mock := &MockCommitRule{ctrl: ctrl}
	mock.recorder = &MockCommitRuleMockRecorder{mock}
	return mock
}

// EXPECT returns the recorder used to set up call expectations.
func (m *MockCommitRule) EXPECT() *MockCommitRuleMockRecorder {
	return m.recorder
}

// ProcessCertificate mocks bullshark.CommitRule.ProcessCertificate.
func (m *MockCommitRule) ProcessCertificate(state *dag.State, cert *types.Certificate) ([]*types.Certificate, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "ProcessCertificate", state, cert)
	committed, _ := ret[0].([]*types.Certificate)
	err, _ := ret[1].(error)
	return committed, err
}

// ProcessCertificate sets up an expectation on MockCommitRule.ProcessCertificate.
func (mr *MockCommitRuleMockRecorder) ProcessCertificate(state, cert interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "ProcessCertificate", reflect.TypeOf((*MockCommitRule)(nil).ProcessCertificate), state, cert)
}

// UpdateCommittee mocks bullshark.CommitRule.UpdateCommittee.
func (m *MockCommitRule) UpdateCommittee(committee *types.Committee) {
	m.ctrl.T.Helper()
	m.ctrl.Call(m, "UpdateCommittee", committee)
}

// UpdateCommittee sets up an expectation on MockCommitRule.UpdateCommittee.
func (mr *MockCommitRuleMockRecorder) UpdateCommittee(committee interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "UpdateCommittee", reflect.TypeOf((*MockCommitRule)(nil).UpdateCommittee), committee)
}
