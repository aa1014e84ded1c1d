package printer

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/gousb"
)

// USBConnection writes to the bulk OUT endpoint of a printer interface
type USBConnection struct {
	usb      *gousb.Context
	device   *gousb.Device
	cfg      *gousb.Config
	iface    *gousb.Interface
	endpoint *gousb.OutEndpoint
	mu       sync.Mutex
}

// ConnectUSB opens the printer with the given ids.
// Fails when libusb is missing or the device is claimed elsewhere.
func ConnectUSB(vid, pid uint16) (*USBConnection, error) {
	ctx := gousb.NewContext()

	dev, err := ctx.OpenDeviceWithVIDPID(gousb.ID(vid), gousb.ID(pid))
	if err != nil {
		ctx.Close()
		return nil, fmt.Errorf("failed to open USB device: %w", err)
	}
	if dev == nil {
		ctx.Close()
		return nil, fmt.Errorf("device not found: %04X:%04X", vid, pid)
	}
	// usblp holds the interface on linux
	_ = dev.SetAutoDetach(true)

	conn := &USBConnection{usb: ctx, device: dev}

	var lastErr error
	for _, cfgDesc := range dev.Desc.Configs {
		cfg, err := dev.Config(cfgDesc.Number)
		if err != nil {
			lastErr = fmt.Errorf("failed to set config %d: %w", cfgDesc.Number, err)
			continue
		}
		for _, ifaceDesc := range cfgDesc.Interfaces {
			iface, err := claim(cfg, ifaceDesc.Number)
			if err != nil {
				lastErr = err
				continue
			}
			if ep := outEndpoint(iface); ep != nil {
				conn.cfg, conn.iface, conn.endpoint = cfg, iface, ep
				return conn, nil
			}
			iface.Close()
		}
		cfg.Close()
	}

	dev.Close()
	ctx.Close()
	if lastErr != nil {
		return nil, fmt.Errorf("failed to connect to USB printer: %w", lastErr)
	}
	return nil, fmt.Errorf("no suitable interface/endpoint found for USB printer %04X:%04X", vid, pid)
}

func claim(cfg *gousb.Config, num int) (*gousb.Interface, error) {
	iface, err := cfg.Interface(num, 0)
	if err == nil {
		return iface, nil
	}
	// devices sometimes need a moment after a config change
	time.Sleep(100 * time.Millisecond)
	iface, err = cfg.Interface(num, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to claim interface %d: %w", num, err)
	}
	return iface, nil
}

func outEndpoint(iface *gousb.Interface) *gousb.OutEndpoint {
	for _, epDesc := range iface.Setting.Endpoints {
		if epDesc.Direction != gousb.EndpointDirectionOut {
			continue
		}
		if ep, err := iface.OutEndpoint(epDesc.Number); err == nil {
			return ep
		}
	}
	return nil
}

// Write sends data to the printer
func (c *USBConnection) Write(data []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.endpoint.Write(data)
}

// Close releases the interface, config, device and libusb context
func (c *USBConnection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.iface != nil {
		c.iface.Close()
	}
	if c.cfg != nil {
		c.cfg.Close()
	}
	if c.device != nil {
		c.device.Close()
	}
	if c.usb != nil {
		return c.usb.Close()
	}
	return nil
}

// scanUSB lists attached printers from the model catalogue
func scanUSB() ([]Status, error) {
	ctx := gousb.NewContext()
	defer ctx.Close()

	devices, err := ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		if uint16(desc.Vendor) != BrotherVendorID {
			return false
		}
		_, ok := ModelForProduct(uint16(desc.Product))
		return ok
	})
	// OpenDevices returns the devices it could open alongside the first error
	if err != nil && len(devices) == 0 {
		return nil, fmt.Errorf("failed to enumerate USB devices: %w", err)
	}

	var found []Status
	for _, dev := range devices {
		pid := uint16(dev.Desc.Product)
		m, _ := ModelForProduct(pid)
		st := unknownStatus(fmt.Sprintf("usb://0x%04x:0x%04x", BrotherVendorID, pid))
		st.Model = m.Identifier
		st.RedSupport = m.TwoColor
		st.StatusType = "Status reply"
		st.PhaseType = "Waiting to receive"
		found = append(found, st)
		dev.Close()
	}
	return found, nil
}
