package emulated

import (
	"github.com/cockroachdb/errors"
	"github.com/horizon2038/a9nloader/firmware"
	"github.com/horizon2038/a9nloader/memutils"
	"github.com/horizon2038/a9nloader/memutils/metadata"
)

type region struct {
	memory     *Memory
	handle     metadata.BlockAllocationHandle
	address    uint64
	size       uint64
	memoryType firmware.MemoryType
	userData   any
}

var _ firmware.Region = &region{}

func (r *region) Address() uint64                 { return r.address }
func (r *region) Size() uint64                    { return r.size }
func (r *region) Pages() int                      { return memutils.BytesToPages(r.size) }
func (r *region) MemoryType() firmware.MemoryType { return r.memoryType }

func (r *region) checkAccess(address, length uint64) error {
	if r.handle == metadata.NoAllocation {
		return errors.Mark(errors.Newf("region at 0x%016x has been freed", r.address), firmware.ErrOutOfBounds)
	}

	end := address + length
	if address < r.address || end < address || end > r.address+r.size {
		return errors.Mark(
			errors.Newf("access to [0x%016x, 0x%016x) falls outside of region [0x%016x, 0x%016x)", address, end, r.address, r.address+r.size),
			firmware.ErrOutOfBounds,
		)
	}

	return nil
}

func (r *region) Write(address uint64, data []byte) error {
	r.memory.mutex.Lock()
	defer r.memory.mutex.Unlock()

	err := r.checkAccess(address, uint64(len(data)))
	if err != nil {
		return err
	}

	return r.memory.copyIn(address, data)
}

func (r *region) Zero(address uint64, length uint64) error {
	r.memory.mutex.Lock()
	defer r.memory.mutex.Unlock()

	err := r.checkAccess(address, length)
	if err != nil {
		return err
	}

	return r.memory.clear(address, length)
}

func (r *region) Read(address uint64, data []byte) error {
	r.memory.mutex.RLock()
	defer r.memory.mutex.RUnlock()

	err := r.checkAccess(address, uint64(len(data)))
	if err != nil {
		return err
	}

	return r.memory.copyOut(address, data)
}
