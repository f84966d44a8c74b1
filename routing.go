package server

import (
	"gridvoice/server/internal/control"
	"gridvoice/server/internal/telemetry"
	"gridvoice/server/internal/world"
)

// ControlSender is the outbound side of the control channel. Sends are
// best-effort and never return an error to routing callers.
type ControlSender interface {
	Send(control.Request)
}

// LinkOptions shape a single link toggle. The zero value is a plain
// symmetric transceiver link without channel or range.
type LinkOptions struct {
	// Channel tags the link with a radio channel slot; zero means none.
	Channel int

	// Range overrides the audible range of the link in meters; zero means
	// the backend default for the device.
	Range float64

	// SelfMode, when set, puts the acting local entity first in the member
	// list with that mode. Target entities use OthersMode.
	SelfMode   DeviceMode
	OthersMode DeviceMode

	// ErrorLevel attaches a signal degradation to every target member.
	ErrorLevel float64

	// EmptyOK sends the message even when every member was filtered out,
	// which is required to clear channel-wide effects on leave.
	EmptyOK bool
}

// LinkRouter is the single chokepoint that turns routing decisions into
// wire messages. Every subsystem funnels through SetLink; nothing else
// writes comm_device messages.
type LinkRouter struct {
	registry *Registry
	sender   ControlSender
	logger   telemetry.Logger
	self     world.EntityID
}

// NewLinkRouter wires the primitive to a registry and a control sender.
func NewLinkRouter(registry *Registry, sender ControlSender, self world.EntityID, logger telemetry.Logger) *LinkRouter {
	return &LinkRouter{registry: registry, sender: sender, logger: logger, self: self}
}

// SetLink expresses one link change for the given entities. Invalid device
// types are logged no-ops; entities without a registered client id are
// skipped, not errored. Exactly one wire message leaves per successful
// call. Returns whether a message was sent.
func (lr *LinkRouter) SetLink(ids []world.EntityID, device DeviceType, on bool, opts LinkOptions) bool {
	if !device.Valid() {
		if lr.logger != nil {
			lr.logger.Printf("routing: invalid comm device type %q", device)
		}
		return false
	}

	othersMode := opts.OthersMode
	if othersMode == "" {
		othersMode = ModeTransceiver
	}

	members := make([]control.Member, 0, len(ids)+1)
	if opts.SelfMode != "" {
		if self, ok := lr.registry.Get(lr.self); ok && self.ClientID != 0 {
			members = append(members, control.Member{ClientID: self.ClientID, Mode: string(opts.SelfMode)})
		}
	}
	for _, id := range ids {
		if opts.SelfMode != "" && id == lr.self {
			continue
		}
		entity, ok := lr.registry.Get(id)
		if !ok || entity.ClientID == 0 {
			continue
		}
		members = append(members, control.Member{
			ClientID:   entity.ClientID,
			Mode:       string(othersMode),
			ErrorLevel: opts.ErrorLevel,
		})
	}

	if len(members) == 0 && !opts.EmptyOK {
		return false
	}

	lr.sender.Send(control.Request{
		Base: control.Base{RequestType: control.RequestTypeIngame},
		CommDevice: &control.CommDevice{
			On:       on,
			CommType: string(device),
			Members:  members,
			Channel:  opts.Channel,
			Range:    opts.Range,
		},
	})
	return true
}

// SetDeviceVolume updates the backend-side volume for a device type.
func (lr *LinkRouter) SetDeviceVolume(device DeviceType, volume float64, channel int) {
	if !device.Valid() {
		if lr.logger != nil {
			lr.logger.Printf("routing: invalid comm device type %q", device)
		}
		return
	}
	clamped := clamp(volume, 0, 1)
	lr.sender.Send(control.Request{
		Base: control.Base{RequestType: control.RequestTypeIngame},
		CommDeviceSettings: &control.CommDeviceSettings{
			CommType: string(device),
			Volume:   &clamped,
			Channel:  channel,
		},
	})
}

// SetDeviceStereo updates the backend-side output mode for a device type.
func (lr *LinkRouter) SetDeviceStereo(device DeviceType, mode StereoMode, channel int) {
	if !device.Valid() {
		if lr.logger != nil {
			lr.logger.Printf("routing: invalid comm device type %q", device)
		}
		return
	}
	lr.sender.Send(control.Request{
		Base: control.Base{RequestType: control.RequestTypeIngame},
		CommDeviceSettings: &control.CommDeviceSettings{
			CommType:   string(device),
			OutputMode: string(mode),
			Channel:    channel,
		},
	})
}

// SendDeviceLeft releases everything a set of entities held on a channel in
// one message. Unregistered entities are skipped; an empty id list is still
// sent because the backend clears channel-wide state from it.
func (lr *LinkRouter) SendDeviceLeft(ids []world.EntityID, device DeviceType, channel int) {
	if !device.Valid() {
		if lr.logger != nil {
			lr.logger.Printf("routing: invalid comm device type %q", device)
		}
		return
	}
	lr.sender.Send(control.Request{
		Base: control.Base{RequestType: control.RequestTypeIngame},
		CommDeviceLeft: &control.CommDeviceLeft{
			CommType:  string(device),
			ClientIDs: lr.registry.ClientIDs(ids),
			Channel:   channel,
		},
	})
}
