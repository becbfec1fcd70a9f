package wpa

import (
	"github.com/go-errors/errors"
	"github.com/godbus/dbus/v5"
)

const (
	service    = "fi.w1.wpa_supplicant1"
	objectPath = "/fi/w1/wpa_supplicant1"
)

// Wpa is a connection to wpa_supplicant on the system bus.
type Wpa struct {
	conn *dbus.Conn
	obj  dbus.BusObject
}

func New() *Wpa {
	return &Wpa{}
}

func (w *Wpa) Start() error {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return errors.Errorf("could not connect to system bus: %v", err)
	}

	w.conn = conn
	w.obj = conn.Object(service, objectPath)

	return nil
}

func (w *Wpa) Stop() error {
	if w.conn == nil {
		return nil
	}

	err := w.conn.Close()
	if err != nil {
		return errors.Errorf("could not close system bus connection: %v", err)
	}

	w.conn = nil

	return nil
}

func (w *Wpa) GetInterface(ifname string) (*Interface, error) {
	if w.conn == nil {
		return nil, errors.New("not connected")
	}

	var path dbus.ObjectPath

	err := w.obj.Call(service+".GetInterface", 0, ifname).Store(&path)
	if err != nil {
		return nil, errors.Errorf("could not get interface %v: %v", ifname, err)
	}

	return &Interface{
		wpa: w,
		obj: w.conn.Object(service, path),
	}, nil
}
