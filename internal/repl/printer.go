package repl

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/srg/bluerepl/internal/bledb"
	"github.com/srg/bluerepl/internal/bytefmt"
	"github.com/srg/bluerepl/internal/device"
)

func (s *Session) printScanList(list []device.Peripheral, showAll bool) error {
	rows := make([]device.Peripheral, 0, len(list))
	for _, p := range list {
		if p.Name == "" && !showAll {
			continue
		}
		rows = append(rows, p)
	}
	if len(rows) == 0 {
		fmt.Fprintln(s.out, "Empty scan list")
		return nil
	}

	w := tabwriter.NewWriter(s.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "INDEX\tNAME\tADDRESS\tRSSI\tVENDOR")
	for _, p := range rows {
		vendor := p.Vendor
		if vendor == "" {
			vendor = "-"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%d dBm\t%s\n", p.ID, p.DisplayName(), p.Address, p.RSSI, vendor)
	}
	return w.Flush()
}

type adapterInfo struct {
	Library       string                   `json:"library"`
	Connected     bool                     `json:"connected"`
	Peer          *device.Peripheral       `json:"peripheral,omitempty"`
	Notifications device.NotificationStats `json:"notifications"`
}

func (s *Session) printAdapter(asJSON bool) error {
	info := adapterInfo{Library: s.ctrl.Name(), Notifications: s.ctrl.NotificationStats()}
	if peer, ok := s.ctrl.Connected(); ok {
		info.Connected = true
		info.Peer = &peer
	}

	if asJSON {
		return s.printJSON(info)
	}

	w := tabwriter.NewWriter(s.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Library:\t%s\n", info.Library)
	if info.Peer != nil {
		fmt.Fprintf(w, "Connected to:\t%s (%s)\n", info.Peer.DisplayName(), info.Peer.Address)
	} else {
		fmt.Fprintln(w, "Connected to:\t-")
	}
	n := info.Notifications
	fmt.Fprintf(w, "Notifications:\t%d received, %d dropped, %d queued\n", n.Sent, n.Dropped, n.Queued)
	return w.Flush()
}

type gattCharacteristic struct {
	UUID       string   `json:"uuid"`
	Name       string   `json:"name,omitempty"`
	Properties []string `json:"properties"`
}

type gattService struct {
	UUID            string               `json:"uuid"`
	Name            string               `json:"name,omitempty"`
	Characteristics []gattCharacteristic `json:"characteristics"`
}

type gattInfo struct {
	Name     string        `json:"name"`
	Address  string        `json:"address"`
	RSSI     int           `json:"rssi"`
	Services []gattService `json:"services"`
}

func (s *Session) printGATT(peer device.Peripheral, services []device.ServiceInfo, asJSON bool) error {
	info := gattInfo{Name: peer.DisplayName(), Address: peer.Address, RSSI: peer.RSSI}
	for _, svc := range services {
		gs := gattService{UUID: svc.UUID, Name: s.serviceLabel(svc.UUID)}
		for _, c := range svc.Characteristics {
			gs.Characteristics = append(gs.Characteristics, gattCharacteristic{
				UUID:       c.UUID,
				Name:       s.characteristicLabel(svc.UUID, c.UUID),
				Properties: c.Properties,
			})
		}
		info.Services = append(info.Services, gs)
	}

	if asJSON {
		return s.printJSON(info)
	}

	w := tabwriter.NewWriter(s.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Peripheral:\t%s\n", info.Name)
	fmt.Fprintf(w, "Address:\t%s\n", info.Address)
	fmt.Fprintf(w, "RSSI:\t%d dBm\n", info.RSSI)
	for _, svc := range info.Services {
		fmt.Fprintf(w, "\nService %s\t%s\n", svc.UUID, svc.Name)
		for _, c := range svc.Characteristics {
			fmt.Fprintf(w, "  - %s\t%s\t[%s]\n", c.UUID, c.Name, strings.Join(c.Properties, ", "))
		}
	}
	return w.Flush()
}

func (s *Session) printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(s.out, string(data))
	return err
}

// serviceLabel prefers the preset name, then the SIG name; "" when neither is known.
func (s *Session) serviceLabel(uuid string) string {
	if name, ok := s.preset.ServiceName(uuid); ok {
		return name
	}
	return bledb.LookupService(uuid)
}

func (s *Session) characteristicLabel(serviceUUID, charUUID string) string {
	if name, ok := s.preset.CharacteristicName(serviceUUID, charUUID); ok {
		return name
	}
	return bledb.LookupCharacteristic(charUUID)
}

func (s *Session) formatNotification(n device.Notification) string {
	kind := "notify"
	if n.Indication {
		kind = "indicate"
	}

	svc := s.serviceLabel(n.Service)
	if svc == "" {
		svc = n.Service
	}
	char := s.characteristicLabel(n.Service, n.Characteristic)
	if char == "" {
		char = n.Characteristic
	}

	value, _ := bytefmt.Format(n.Data, bytefmt.Hex)

	tag := color.New(color.FgCyan)
	if s.colors {
		tag.EnableColor()
	} else {
		tag.DisableColor()
	}
	return fmt.Sprintf("%s %s/%s: %s", tag.Sprintf("[%s]", kind), svc, char, value)
}
