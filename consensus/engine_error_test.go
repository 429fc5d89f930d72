// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package consensus

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/lunabft/narwhal-core/bullsharktest"
	"github.com/lunabft/narwhal-core/consensustest"
	"github.com/lunabft/narwhal-core/storetest"
	"github.com/lunabft/narwhal-core/types"
)

// A CommitRule failure must propagate out of commit (and therefore Run),
// instead of being swallowed — the engine has no way to make safe
// progress if its own protocol rejects a certificate unexpectedly.
func TestCommitPropagatesCommitRuleError(t *testing.T) {
	ctrl := gomock.NewController(t)
	rule := bullsharktest.NewMockCommitRule(ctrl)

	failure := errors.New("boom")
	rule.EXPECT().ProcessCertificate(gomock.Any(), gomock.Any()).Return(nil, failure)

	engine := New(Config{
		Rule:           rule,
		GCDepth:        50,
		CertStore:      storetest.NewMemory(),
		ConsensusStore: storetest.NewMemory(),
		TxPrimary:      make(chan *types.Certificate, 1),
		TxOutput:       make(chan types.ConsensusOutput, 1),
	})

	author := consensustest.Authorities(1)[0]
	h := consensustest.Header(author, 2, 0, nil, nil)
	err := engine.commit(context.Background(), consensustest.Certify(h, nil))
	require.Error(t, err)
	require.ErrorIs(t, err, failure)
}

func TestRunStopsOnShutdownReconfigure(t *testing.T) {
	ctrl := gomock.NewController(t)
	rule := bullsharktest.NewMockCommitRule(ctrl)

	rxCertificates := make(chan *types.Certificate)
	rxReconfigure := make(chan types.ReconfigureNotification, 1)

	engine := New(Config{
		Rule:           rule,
		GCDepth:        50,
		CertStore:      storetest.NewMemory(),
		ConsensusStore: storetest.NewMemory(),
		TxPrimary:      make(chan *types.Certificate, 1),
		TxOutput:       make(chan types.ConsensusOutput, 1),
		RxCertificates: rxCertificates,
		RxReconfigure:  rxReconfigure,
	})

	rxReconfigure <- types.ReconfigureNotification{Kind: types.Shutdown}
	require.NoError(t, engine.Run(context.Background()))
}
