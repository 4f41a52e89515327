// Copyright (c) 2025 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package transport

import (
	"context"
)

// FrameHandler processes one complete request frame and returns the
// response frame to write back. A nil response means the frame was
// addressed to another unit: nothing at all is written.
type FrameHandler func(frame []byte) []byte

// Listener accepts raw byte streams, reassembles them into discrete
// request frames, and feeds each frame to the handler.
type Listener interface {
	// Start starts the listener and blocks. It should be called in a
	// goroutine.
	Start(ctx context.Context, handler FrameHandler) error
	Close() error
}
