// Unless explicitly stated otherwise all files in this repository are
// licensed under the Apache License Version 2.0.
// Copyright 2026-present the dynamicspout authors.

// Package zk implements persistence.Adapter over a ZooKeeper-like
// coordination service, following the logical layout in spec.md §6:
// /consumers/<virtualConsumerId>/<partition> -> committed offset,
// /sideline/<requestId> -> serialized SidelinePayload.
package zk

import (
	"encoding/json"
	"path"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/samuel/go-zookeeper/zk"

	"github.com/dynamicspout/spout/internal/model"
	"github.com/dynamicspout/spout/internal/persistence"
)

const zkSessionTimeout = 10 * time.Second

// client is the minimal subset of *zk.Conn this adapter drives,
// narrowed to an interface so tests can substitute a fake the way
// ZookeeperConfigProvider's tests substitute backend in the teacher
// config-provider package.
type client interface {
	Get(path string) ([]byte, *zk.Stat, error)
	Children(path string) ([]string, *zk.Stat, error)
	Exists(path string) (bool, *zk.Stat, error)
	Create(path string, data []byte, flags int32, acl []zk.ACL) (string, error)
	Set(path string, data []byte, version int32) (*zk.Stat, error)
	Delete(path string, version int32) error
	Close()
}

// Adapter is a ZooKeeper-backed persistence.Adapter.
type Adapter struct {
	servers []string
	root    string

	mu    sync.Mutex
	conn  client
	known map[string]struct{} // paths already confirmed to exist, to skip redundant round trips
}

// New constructs an Adapter that will dial servers on Open, rooting
// all paths under root (e.g. "/spout").
func New(servers []string, root string) *Adapter {
	return &Adapter{servers: servers, root: strings.TrimRight(root, "/"), known: make(map[string]struct{})}
}

// NewWithClient injects a pre-built client, used by tests. The root is
// assumed already created, matching what Open would have ensured.
func NewWithClient(c client, root string) *Adapter {
	root = strings.TrimRight(root, "/")
	a := &Adapter{conn: c, root: root, known: make(map[string]struct{})}
	a.known[root] = struct{}{}
	return a
}

func (a *Adapter) Open() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.conn != nil {
		return nil
	}
	conn, _, err := zk.Connect(a.servers, zkSessionTimeout)
	if err != nil {
		return errors.Wrap(err, "failed to connect to zookeeper")
	}
	a.conn = conn
	return a.ensurePath(a.root)
}

func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.conn != nil {
		a.conn.Close()
	}
	return nil
}

func (a *Adapter) consumerPath(virtualConsumerID string, partition int32) string {
	return path.Join(a.root, "consumers", virtualConsumerID, strconv.Itoa(int(partition)))
}

func (a *Adapter) consumerDirPath(virtualConsumerID string) string {
	return path.Join(a.root, "consumers", virtualConsumerID)
}

func (a *Adapter) sidelinePath(id string) string {
	return path.Join(a.root, "sideline", id)
}

type partitionOffsetDTO struct {
	Topic     string `json:"topic"`
	Partition int32  `json:"partition"`
	Offset    int64  `json:"offset"`
}

func encodeState(state model.ConsumerState) []byte {
	dtos := make([]partitionOffsetDTO, 0, len(state.Partitions()))
	for _, k := range state.Partitions() {
		off, _ := state.Get(k)
		dtos = append(dtos, partitionOffsetDTO{Topic: k.Topic, Partition: k.Partition, Offset: off})
	}
	b, _ := json.Marshal(dtos)
	return b
}

func decodeState(data []byte) (model.ConsumerState, error) {
	var dtos []partitionOffsetDTO
	if err := json.Unmarshal(data, &dtos); err != nil {
		return model.ConsumerState{}, errors.Wrap(err, "failed to decode consumer state")
	}
	b := model.NewConsumerStateBuilder()
	for _, d := range dtos {
		b.WithOffset(d.Topic, d.Partition, d.Offset)
	}
	return b.Build(), nil
}

func (a *Adapter) PersistConsumerState(virtualConsumerID string, state model.ConsumerState) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, k := range state.Partitions() {
		off, _ := state.Get(k)
		p := a.consumerPath(virtualConsumerID, k.Partition)
		if err := a.ensurePath(path.Dir(p)); err != nil {
			return err
		}
		if err := a.setOrCreate(p, []byte(strconv.FormatInt(off, 10))); err != nil {
			return errors.Wrapf(err, "failed to persist offset for partition %d", k.Partition)
		}
	}
	return nil
}

func (a *Adapter) RetrieveConsumerState(virtualConsumerID string) (model.ConsumerState, bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	dir := a.consumerDirPath(virtualConsumerID)
	exists, _, err := a.conn.Exists(dir)
	if err != nil {
		return model.ConsumerState{}, false, errors.Wrap(err, "failed to check consumer state existence")
	}
	if !exists {
		return model.ConsumerState{}, false, nil
	}
	children, _, err := a.conn.Children(dir)
	if err != nil {
		return model.ConsumerState{}, false, errors.Wrap(err, "failed to list consumer partitions")
	}
	if len(children) == 0 {
		return model.ConsumerState{}, false, nil
	}
	b := model.NewConsumerStateBuilder()
	// The topic is unknown from the path layout alone (spec §6 keys
	// only by partition under the consumer id); callers that need
	// topic-qualified state must have seeded it via a prior
	// PersistConsumerState call in-process within the same run, so in
	// practice retrieval here is consulted only to learn the offset.
	for _, child := range children {
		partition, err := strconv.Atoi(child)
		if err != nil {
			continue
		}
		data, _, err := a.conn.Get(path.Join(dir, child))
		if err != nil {
			return model.ConsumerState{}, false, errors.Wrapf(err, "failed to read offset for partition %d", partition)
		}
		off, err := strconv.ParseInt(string(data), 10, 64)
		if err != nil {
			return model.ConsumerState{}, false, errors.Wrapf(err, "corrupt offset for partition %d", partition)
		}
		b.WithOffset("", int32(partition), off)
	}
	return b.Build(), true, nil
}

func (a *Adapter) ClearConsumerState(virtualConsumerID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	dir := a.consumerDirPath(virtualConsumerID)
	children, _, err := a.conn.Children(dir)
	if err != nil {
		return nil // nothing persisted, nothing to clear
	}
	for _, child := range children {
		if err := a.conn.Delete(path.Join(dir, child), -1); err != nil {
			return errors.Wrapf(err, "failed to clear offset node %s", child)
		}
	}
	return a.conn.Delete(dir, -1)
}

type sidelinePayloadDTO struct {
	ID             string               `json:"id"`
	Type           string               `json:"type"`
	RequestSteps   []byte               `json:"requestSteps"`
	Negated        bool                 `json:"negated"`
	StartingState  []partitionOffsetDTO `json:"startingState"`
	HasEndingState bool                 `json:"hasEndingState"`
	EndingState    []partitionOffsetDTO `json:"endingState,omitempty"`
}

func stateDTOs(state model.ConsumerState) []partitionOffsetDTO {
	dtos := make([]partitionOffsetDTO, 0, len(state.Partitions()))
	for _, k := range state.Partitions() {
		off, _ := state.Get(k)
		dtos = append(dtos, partitionOffsetDTO{Topic: k.Topic, Partition: k.Partition, Offset: off})
	}
	return dtos
}

func stateFromDTOs(dtos []partitionOffsetDTO) model.ConsumerState {
	b := model.NewConsumerStateBuilder()
	for _, d := range dtos {
		b.WithOffset(d.Topic, d.Partition, d.Offset)
	}
	return b.Build()
}

func (a *Adapter) PersistSidelineRequest(payload persistence.SidelinePayload) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	dto := sidelinePayloadDTO{
		ID:             payload.ID,
		Type:           string(payload.Type),
		RequestSteps:   payload.RequestSteps,
		Negated:        payload.Negated,
		StartingState:  stateDTOs(payload.StartingState),
		HasEndingState: payload.HasEndingState,
	}
	if payload.HasEndingState {
		dto.EndingState = stateDTOs(payload.EndingState)
	}
	data, err := json.Marshal(dto)
	if err != nil {
		return errors.Wrap(err, "failed to encode sideline payload")
	}
	p := a.sidelinePath(payload.ID)
	if err := a.ensurePath(path.Dir(p)); err != nil {
		return err
	}
	return a.setOrCreate(p, data)
}

func (a *Adapter) RetrieveSidelineRequest(id string) (persistence.SidelinePayload, bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	p := a.sidelinePath(id)
	exists, _, err := a.conn.Exists(p)
	if err != nil {
		return persistence.SidelinePayload{}, false, errors.Wrap(err, "failed to check sideline request existence")
	}
	if !exists {
		return persistence.SidelinePayload{}, false, nil
	}
	data, _, err := a.conn.Get(p)
	if err != nil {
		return persistence.SidelinePayload{}, false, errors.Wrap(err, "failed to read sideline request")
	}
	var dto sidelinePayloadDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return persistence.SidelinePayload{}, false, errors.Wrap(err, "failed to decode sideline request")
	}
	payload := persistence.SidelinePayload{
		ID:             dto.ID,
		Type:           persistence.SidelineType(dto.Type),
		RequestSteps:   dto.RequestSteps,
		Negated:        dto.Negated,
		StartingState:  stateFromDTOs(dto.StartingState),
		HasEndingState: dto.HasEndingState,
	}
	if dto.HasEndingState {
		payload.EndingState = stateFromDTOs(dto.EndingState)
	}
	return payload, true, nil
}

func (a *Adapter) ListSidelineRequests() ([]string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	dir := path.Join(a.root, "sideline")
	exists, _, err := a.conn.Exists(dir)
	if err != nil {
		return nil, errors.Wrap(err, "failed to check sideline root")
	}
	if !exists {
		return nil, nil
	}
	children, _, err := a.conn.Children(dir)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list sideline requests")
	}
	return children, nil
}

func (a *Adapter) ClearSidelineRequest(id string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.conn.Delete(a.sidelinePath(id), -1)
}

// ensurePath creates every missing ancestor of p as a persistent,
// empty znode, mirroring the directory-creation idiom the teacher's
// config providers assume a coordination-service backend offers.
func (a *Adapter) ensurePath(p string) error {
	if p == "" || p == "/" {
		return nil
	}
	if a.known == nil {
		a.known = make(map[string]struct{})
	}
	parts := strings.Split(strings.TrimPrefix(p, "/"), "/")
	cur := ""
	for _, part := range parts {
		if part == "" {
			continue
		}
		cur = cur + "/" + part
		if _, ok := a.known[cur]; ok {
			continue
		}
		exists, _, err := a.conn.Exists(cur)
		if err != nil {
			return errors.Wrapf(err, "failed to check existence of %s", cur)
		}
		if !exists {
			if _, err := a.conn.Create(cur, nil, 0, zk.WorldACL(zk.PermAll)); err != nil && err != zk.ErrNodeExists {
				return errors.Wrapf(err, "failed to create %s", cur)
			}
		}
		a.known[cur] = struct{}{}
	}
	return nil
}

func (a *Adapter) setOrCreate(p string, data []byte) error {
	exists, _, err := a.conn.Exists(p)
	if err != nil {
		return errors.Wrapf(err, "failed to check existence of %s", p)
	}
	if exists {
		_, err := a.conn.Set(p, data, -1)
		return err
	}
	_, err = a.conn.Create(p, data, 0, zk.WorldACL(zk.PermAll))
	return err
}
