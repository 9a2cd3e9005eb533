package emulated

import "github.com/horizon2038/a9nloader/firmware"

type AllocatePagesCallback func(
	memory *Memory,
	region firmware.Region,
	userData interface{},
)

type FreePagesCallback func(
	memory *Memory,
	region firmware.Region,
	userData interface{},
)

type CallbackOptions struct {
	Allocate AllocatePagesCallback
	Free     FreePagesCallback
	UserData interface{}
}

type memoryCallbacks struct {
	Callbacks *CallbackOptions
	Memory    *Memory
}

func (c *memoryCallbacks) Allocate(region firmware.Region) {
	if c.Callbacks != nil && c.Callbacks.Allocate != nil {
		c.Callbacks.Allocate(c.Memory, region, c.Callbacks.UserData)
	}
}

func (c *memoryCallbacks) Free(region firmware.Region) {
	if c.Callbacks != nil && c.Callbacks.Free != nil {
		c.Callbacks.Free(c.Memory, region, c.Callbacks.UserData)
	}
}
