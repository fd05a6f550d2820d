package preset

import "github.com/srg/bluerepl/internal/device"

// Name and UUID lookups. They never fail: an unknown input, or a nil preset,
// yields ("", false). Reverse lookups compare UUIDs with device.CompareUUID, so
// "180f" matches "0000180f-0000-1000-8000-00805f9b34fb".

// ServiceUUID returns the UUID of the service declared as name.
func (p *Preset) ServiceUUID(name string) (string, bool) {
	if p == nil || p.Services == nil {
		return "", false
	}
	svc, ok := p.Services.Get(name)
	if !ok || svc == nil {
		return "", false
	}
	return svc.UUID, true
}

// ServiceName returns the name of the first service declared with uuid.
func (p *Preset) ServiceName(uuid string) (string, bool) {
	if p == nil || p.Services == nil {
		return "", false
	}
	for pair := p.Services.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Value != nil && device.CompareUUID(pair.Value.UUID, uuid) {
			return pair.Key, true
		}
	}
	return "", false
}

// CharacteristicUUID returns the UUID of characteristic name. serviceRef is
// tried as a service name first, then as a service UUID.
func (p *Preset) CharacteristicUUID(serviceRef, name string) (string, bool) {
	svc, ok := p.service(serviceRef)
	if !ok || svc.Characteristics == nil {
		return "", false
	}
	char, ok := svc.Characteristics.Get(name)
	if !ok || char == nil {
		return "", false
	}
	return char.UUID, true
}

// CharacteristicName returns the name of the characteristic with charUUID in
// the service with serviceUUID.
func (p *Preset) CharacteristicName(serviceUUID, charUUID string) (string, bool) {
	if p == nil || p.Services == nil {
		return "", false
	}
	for pair := p.Services.Oldest(); pair != nil; pair = pair.Next() {
		svc := pair.Value
		if svc == nil || !device.CompareUUID(svc.UUID, serviceUUID) || svc.Characteristics == nil {
			continue
		}
		for c := svc.Characteristics.Oldest(); c != nil; c = c.Next() {
			if c.Value != nil && device.CompareUUID(c.Value.UUID, charUUID) {
				return c.Key, true
			}
		}
	}
	return "", false
}

// ResolveService returns the UUID for a service name, or ref itself.
func (p *Preset) ResolveService(ref string) string {
	if uuid, ok := p.ServiceUUID(ref); ok {
		return uuid
	}
	return ref
}

// ResolveCharacteristic returns the UUID for a characteristic name, or charRef itself.
func (p *Preset) ResolveCharacteristic(serviceRef, charRef string) string {
	if uuid, ok := p.CharacteristicUUID(serviceRef, charRef); ok {
		return uuid
	}
	return charRef
}

func (p *Preset) service(ref string) (*ServiceSpec, bool) {
	if p == nil || p.Services == nil {
		return nil, false
	}
	if svc, ok := p.Services.Get(ref); ok && svc != nil {
		return svc, true
	}
	name, ok := p.ServiceName(ref)
	if !ok {
		return nil, false
	}
	svc, _ := p.Services.Get(name)
	return svc, svc != nil
}
