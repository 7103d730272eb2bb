// Unless explicitly stated otherwise all files in this repository are
// licensed under the Apache License Version 2.0.
// Copyright 2026-present the dynamicspout authors.

package retry

import "github.com/dynamicspout/spout/internal/model"

// NeverRetry disables retry entirely: every failure is an immediate
// abandon from the caller's point of view.
type NeverRetry struct{}

func NewNeverRetry() *NeverRetry { return &NeverRetry{} }

func (n *NeverRetry) Open() error { return nil }

func (n *NeverRetry) Failed(model.MessageId) {}

func (n *NeverRetry) Acked(model.MessageId) {}

func (n *NeverRetry) RetryFurther(model.MessageId) bool { return false }

func (n *NeverRetry) NextFailedMessageToRetry() *model.MessageId { return nil }
