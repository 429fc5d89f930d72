// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package proposer drives round advancement: it assembles headers from
// freshly arrived and in-flight batch digests, enforces the strict
// parent-round discipline, and signs+forwards one header per round to
// the external core. Grounded on the original primary/src/proposer.rs.
package proposer

import (
	"context"
	"fmt"
	"sort"
	"time"

	golog "github.com/luxfi/log"

	"github.com/lunabft/narwhal-core/config"
	"github.com/lunabft/narwhal-core/log"
	"github.com/lunabft/narwhal-core/metrics"
	"github.com/lunabft/narwhal-core/types"
)

// SignatureService signs a header's deterministic bytes. The service
// itself — key management, threshold signing — is an external
// collaborator; the proposer only calls it.
type SignatureService interface {
	Sign(ctx context.Context, header *types.Header) ([]byte, error)
}

// ParentUpdate is delivered by the external core once a parent quorum
// forms for a round.
type ParentUpdate struct {
	Parents []*types.Certificate
	Round   types.Round
	Epoch   types.Epoch
}

// BatchArrival is one worker-reported batch digest awaiting inclusion.
type BatchArrival struct {
	Digest   types.BatchDigest
	WorkerID types.WorkerID
	Size     int
}

// Config bundles Proposer's construction-time dependencies and channels.
type Config struct {
	Logger  golog.Logger
	Metrics *metrics.ProposerMetrics
	Name    types.AuthorityID
	Signer  SignatureService
	Params  config.Parameters

	RxBatches     <-chan BatchArrival
	RxParents     <-chan ParentUpdate
	RxCertified   <-chan *types.Header
	RxSequenced   <-chan *types.Certificate
	RxReconfigure <-chan types.ReconfigureNotification
	TxHeaders     chan<- *types.Header
}

// Proposer is the proposer task.
type Proposer struct {
	log     golog.Logger
	metrics *metrics.ProposerMetrics
	name    types.AuthorityID
	signer  SignatureService
	params  config.Parameters

	committee *types.Committee

	round       types.Round
	epoch       types.Epoch
	lastParents []*types.Certificate
	lastLeader  *types.Certificate

	digests     []types.PayloadEntry
	payloadSize int

	// inFlight maps a certified-but-unsequenced batch to the round of
	// the header it was first seen in.
	inFlight map[types.BatchKey]types.Round
	// sequenced marks batches that have been retired by a sequenced
	// certificate, so a later certified-header sighting doesn't
	// resurrect them.
	sequenced map[types.BatchKey]struct{}

	rxBatches     <-chan BatchArrival
	rxParents     <-chan ParentUpdate
	rxCertified   <-chan *types.Header
	rxSequenced   <-chan *types.Certificate
	rxReconfigure <-chan types.ReconfigureNotification
	txHeaders     chan<- *types.Header
}

// New returns a Proposer at round 0 with no parents; it proposes nothing
// until the core delivers a parent set. Callers that resume from Global
// State should call SetRound after New.
func New(cfg Config, committee *types.Committee) *Proposer {
	return &Proposer{
		log:           log.New(cfg.Logger, "proposer"),
		metrics:       cfg.Metrics,
		name:          cfg.Name,
		signer:        cfg.Signer,
		params:        cfg.Params,
		committee:     committee,
		inFlight:      make(map[types.BatchKey]types.Round),
		sequenced:     make(map[types.BatchKey]struct{}),
		rxBatches:     cfg.RxBatches,
		rxParents:     cfg.RxParents,
		rxCertified:   cfg.RxCertified,
		rxSequenced:   cfg.RxSequenced,
		rxReconfigure: cfg.RxReconfigure,
		txHeaders:     cfg.TxHeaders,
	}
}

// SetRound seeds the proposer's round, used when resuming from the
// Global State Manager's persisted proposer_round.
func (p *Proposer) SetRound(round types.Round) {
	p.round = round
}

// Run drives the proposer's select loop.
func (p *Proposer) Run(ctx context.Context) error {
	p.log.Info("proposer started", "round", p.round)
	timer := time.NewTimer(p.timeoutValue())
	defer timer.Stop()

	for {
		timerFired := false

		select {
		case <-ctx.Done():
			return nil

		case notif, ok := <-p.rxReconfigure:
			if !ok {
				return types.ErrShuttingDown
			}
			if notif.Kind == types.NewEpoch {
				p.changeEpoch(notif.Committee)
			}
			if notif.Kind == types.Shutdown {
				return nil
			}

		case arrival, ok := <-p.rxBatches:
			if !ok {
				return types.ErrShuttingDown
			}
			p.digests = append(p.digests, types.PayloadEntry{Digest: arrival.Digest, WorkerID: arrival.WorkerID})
			p.payloadSize += arrival.Size

		case update, ok := <-p.rxParents:
			if !ok {
				return types.ErrShuttingDown
			}
			if update.Epoch < p.epoch {
				break
			}
			if update.Epoch > p.epoch {
				p.epoch = update.Epoch
			}
			p.lastParents = update.Parents
			if update.Round >= p.round {
				p.round = update.Round + 1
			}

		case header, ok := <-p.rxCertified:
			if !ok {
				return types.ErrShuttingDown
			}
			p.markCertifiedBatches(header)

		case cert, ok := <-p.rxSequenced:
			if !ok {
				return types.ErrShuttingDown
			}
			p.handleSequenced(cert)

		case <-timer.C:
			timerFired = true
		}

		created, err := p.tryPropose(ctx, timerFired)
		if err != nil {
			return err
		}
		if created {
			timer.Reset(p.timeoutValue())
		}
	}
}

// tryPropose attempts to create and send a header for the current round,
// advancing the round on success. It never errors for "not ready yet"
// conditions — those simply skip proposing this iteration.
func (p *Proposer) tryPropose(ctx context.Context, timerFired bool) (bool, error) {
	if len(p.lastParents) == 0 {
		return false, nil
	}
	if !(timerFired || (p.payloadSize >= int(p.params.HeaderSize) && p.votingReady())) {
		return false, nil
	}

	parents := p.filterParents()
	if len(parents) == 0 {
		p.log.Warn("no valid parents for round, waiting", "round", p.round)
		return false, nil
	}
	if !p.committee.HasQuorum(p.parentStake(parents)) {
		return false, nil
	}

	header := p.makeHeader(parents)
	sig, err := p.signer.Sign(ctx, header)
	if err != nil {
		return false, fmt.Errorf("%w: %w", types.ErrSignature, err)
	}
	header.Signature = sig

	select {
	case p.txHeaders <- header:
	case <-ctx.Done():
		return false, nil
	}

	if p.metrics != nil {
		p.metrics.HeadersCreated.Inc()
		p.metrics.CurrentRound.Set(float64(p.round))
	}

	p.round++
	p.digests = nil
	p.payloadSize = 0
	return true, nil
}

// makeHeader assembles the payload (fresh digests plus the still-live
// in-flight subset, sorted for determinism) and the parent digest list.
func (p *Proposer) makeHeader(parents []*types.Certificate) *types.Header {
	payload := append([]types.PayloadEntry(nil), p.digests...)

	var inFlight []types.BatchKey
	minRound := p.gcFloor()
	for key, round := range p.inFlight {
		if round < minRound {
			continue
		}
		if _, done := p.sequenced[key]; done {
			continue
		}
		inFlight = append(inFlight, key)
	}
	sort.Slice(inFlight, func(i, j int) bool { return inFlight[i].Less(inFlight[j]) })
	for _, key := range inFlight {
		payload = append(payload, types.PayloadEntry{Digest: key.Digest, WorkerID: key.WorkerID})
	}

	parentDigests := make([]types.CertificateDigest, len(parents))
	for i, c := range parents {
		parentDigests[i] = c.Digest()
	}

	return &types.Header{
		Author:  p.name,
		Round:   p.round,
		Epoch:   p.epoch,
		Payload: payload,
		Parents: parentDigests,
	}
}

// filterParents applies the strict parent-round rule for the current
// round: r=1 genesis only, r=2 rounds 0-1, r=3 rounds 0-2, r>=4 exactly
// round r-1.
func (p *Proposer) filterParents() []*types.Certificate {
	var maxAllowed types.Round
	exact := false
	switch {
	case p.round <= 1:
		maxAllowed = 0
	case p.round == 2:
		maxAllowed = 1
	case p.round == 3:
		maxAllowed = 2
	default:
		maxAllowed = p.round - 1
		exact = true
	}

	var out []*types.Certificate
	for _, cert := range p.lastParents {
		if exact {
			if cert.Round() == maxAllowed {
				out = append(out, cert)
			}
			continue
		}
		if cert.Round() <= maxAllowed {
			out = append(out, cert)
		}
	}
	return out
}

func (p *Proposer) parentStake(parents []*types.Certificate) uint64 {
	var stake uint64
	for _, c := range parents {
		stake += p.committee.StakeOf(c.Origin())
	}
	return stake
}

func (p *Proposer) gcFloor() types.Round {
	if p.round > types.Round(p.params.GCDepth) {
		return p.round - types.Round(p.params.GCDepth)
	}
	return 0
}

// markCertifiedBatches records each payload entry of a newly certified
// header as in-flight, keeping the earliest round of inclusion.
func (p *Proposer) markCertifiedBatches(header *types.Header) {
	for _, entry := range header.Payload {
		key := types.BatchKey{Digest: entry.Digest, WorkerID: entry.WorkerID}
		if _, exists := p.inFlight[key]; !exists {
			p.inFlight[key] = header.Round
		}
	}
	if p.metrics != nil {
		p.metrics.InFlightBatches.Set(float64(len(p.inFlight)))
	}
}

// handleSequenced retires a certificate's batches from in-flight tracking
// and performs GC, fork-safely: every honest node sees the same sequenced
// certificates in the same order, so this cleanup is deterministic.
func (p *Proposer) handleSequenced(cert *types.Certificate) {
	for _, entry := range cert.Header.Payload {
		key := types.BatchKey{Digest: entry.Digest, WorkerID: entry.WorkerID}
		p.sequenced[key] = struct{}{}
		delete(p.inFlight, key)
	}

	floor := p.gcFloor()
	for key, round := range p.inFlight {
		if round <= floor {
			delete(p.inFlight, key)
		}
	}
	if p.metrics != nil {
		p.metrics.InFlightBatches.Set(float64(len(p.inFlight)))
	}
}

// changeEpoch resets round-scoped state for a new committee.
func (p *Proposer) changeEpoch(committee *types.Committee) {
	p.committee = committee
	p.epoch = committee.Epoch
	p.round = 0
	p.lastParents = nil
	p.lastLeader = nil
	p.inFlight = make(map[types.BatchKey]types.Round)
	p.sequenced = make(map[types.BatchKey]struct{})
}

// votingReady implements ready(): under the asynchronous model it is
// always true; under partial synchrony it additionally requires a
// leader-vote quorum on odd rounds, or the leader's own certificate
// among parents on even rounds.
func (p *Proposer) votingReady() bool {
	if p.params.NetworkModel == config.Asynchronous {
		return true
	}
	if p.round%2 == 1 {
		p.updateLeader()
		return p.enoughVotes()
	}
	leaderID := p.committee.Leader(p.round)
	for _, c := range p.lastParents {
		if c.Origin() == leaderID {
			return true
		}
	}
	return false
}

// updateLeader records the previous round's elected leader certificate,
// if present among the current parents, for enoughVotes to check votes
// against.
func (p *Proposer) updateLeader() {
	leaderID := p.committee.Leader(p.round - 1)
	for _, c := range p.lastParents {
		if c.Origin() == leaderID {
			p.lastLeader = c
			return
		}
	}
	p.lastLeader = nil
}

// enoughVotes reports whether the parent set carries either >= validity
// stake naming the previous round's leader, or >= quorum stake not
// naming it — either way, an odd round can safely advance.
func (p *Proposer) enoughVotes() bool {
	if p.lastLeader == nil {
		return true
	}
	leaderID := p.lastLeader.Origin()
	var forLeader, total uint64
	for _, c := range p.lastParents {
		stake := p.committee.StakeOf(c.Origin())
		total += stake
		if c.Origin() == leaderID {
			forLeader += stake
		}
	}
	if p.committee.HasValidity(forLeader) {
		return true
	}
	return p.committee.HasQuorum(total - forLeader)
}

// timeoutValue returns max_header_delay, halved when this authority will
// lead the next round under partial synchrony (shortens the path to a
// leader certificate and therefore to the next commit).
func (p *Proposer) timeoutValue() time.Duration {
	if p.params.NetworkModel == config.PartiallySynchronous && p.committee.Leader(p.round+1) == p.name {
		return p.params.MaxHeaderDelay / 2
	}
	return p.params.MaxHeaderDelay
}
