package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/valkey-io/valkey-go"
)

const slotKeyPrefix = "visit-hub:slot:"

// ValkeySlot keeps each slot in a hash with "data" and "version" fields.
// Writes use WATCH/MULTI/EXEC so the version check and the write are atomic.
type ValkeySlot struct {
	client valkey.Client
}

// NewValkeySlot connects to a valkey server.
func NewValkeySlot(addr string) (*ValkeySlot, error) {
	client, err := valkey.NewClient(valkey.ClientOption{InitAddress: []string{addr}})
	if err != nil {
		return nil, fmt.Errorf("connecting to valkey at %s: %w", addr, err)
	}
	return &ValkeySlot{client: client}, nil
}

// Close releases the underlying connections.
func (v *ValkeySlot) Close() {
	v.client.Close()
}

// Load reads a slot.
func (v *ValkeySlot) Load(ctx context.Context, key string) ([]byte, int64, error) {
	fields, err := v.client.Do(ctx, v.client.B().Hgetall().Key(slotKeyPrefix+key).Build()).AsStrMap()
	if err != nil {
		return nil, 0, fmt.Errorf("loading slot %s: %w", key, err)
	}
	if len(fields) == 0 {
		return nil, 0, nil
	}

	version, err := strconv.ParseInt(fields["version"], 10, 64)
	if err != nil {
		return nil, 0, fmt.Errorf("parsing slot %s version: %w", key, err)
	}
	return []byte(fields["data"]), version, nil
}

// Store writes a slot if its version still matches.
func (v *ValkeySlot) Store(ctx context.Context, key string, data []byte, version int64) (int64, error) {
	k := slotKeyPrefix + key
	next := version + 1

	err := v.client.Dedicated(func(c valkey.DedicatedClient) error {
		if err := c.Do(ctx, c.B().Watch().Key(k).Build()).Error(); err != nil {
			return err
		}

		current, err := c.Do(ctx, c.B().Hget().Key(k).Field("version").Build()).AsInt64()
		if valkey.IsValkeyNil(err) {
			current = 0
		} else if err != nil {
			return err
		}

		if current != version {
			if err := c.Do(ctx, c.B().Unwatch().Build()).Error(); err != nil {
				return err
			}
			return ErrVersionConflict
		}

		resps := c.DoMulti(ctx,
			c.B().Multi().Build(),
			c.B().Hset().Key(k).FieldValue().
				FieldValue("data", string(data)).
				FieldValue("version", strconv.FormatInt(next, 10)).
				Build(),
			c.B().Exec().Build(),
		)
		if err := resps[len(resps)-1].Error(); err != nil {
			if valkey.IsValkeyNil(err) {
				return ErrVersionConflict
			}
			return err
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrVersionConflict) {
			return 0, err
		}
		return 0, fmt.Errorf("storing slot %s: %w", key, err)
	}

	return next, nil
}

// Remove deletes a slot.
func (v *ValkeySlot) Remove(ctx context.Context, key string) error {
	if err := v.client.Do(ctx, v.client.B().Del().Key(slotKeyPrefix+key).Build()).Error(); err != nil {
		return fmt.Errorf("removing slot %s: %w", key, err)
	}
	return nil
}
