package modbusctrl

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	mbserver "github.com/tbrandon/mbserver"

	"kiln_controller/internal/logger"
	"kiln_controller/internal/models"
)

// Config for the Modbus TCP slave.
type Config struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
	UnitID  byte   `mapstructure:"unit_id"` // 1..247
}

// Input register map. RegRuntime and RegTotalTime saturate at 65535 s
// (about 18 h); the 32-bit pairs carry the full value, high word first.
const (
	RegTemperature = iota // °, scaled by TemperatureScale
	RegTarget             // °, scaled by TemperatureScale
	RegRuntime            // seconds, 16-bit
	RegTotalTime          // seconds, 16-bit
	RegHeatDuty           // fraction, scaled by DutyScale
	RegState              // 0 idle, 1 running
	RegRuntimeHi          // seconds, 32-bit
	RegRuntimeLo
	RegTotalTimeHi // seconds, 32-bit
	RegTotalTimeLo
	inputRegisters
)

const (
	TemperatureScale = 10
	DutyScale        = 1000
)

// Kiln is what the slave reads and commands.
type Kiln interface {
	GetState(ctx context.Context) (models.OvenState, error)
	Abort(ctx context.Context) error
}

type Controller struct {
	svc Kiln
	cfg Config
	log *logger.Logger

	serv *mbserver.Server
}

func New(svc Kiln, cfg Config, log *logger.Logger) (*Controller, error) {
	if cfg.UnitID == 0 {
		return nil, errors.New("modbus: UnitID is required (non-zero)")
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:1502"
	}
	return &Controller{svc: svc, cfg: cfg, log: logger.OrNop(log).Named("modbus")}, nil
}

// Run serves until ctx is canceled. Reads go straight to the service, so
// no register sync loop is needed.
func (c *Controller) Run(ctx context.Context) error {
	serv := mbserver.NewServer()
	c.serv = serv

	// Handlers are registered before listening; mbserver reads them from
	// its connection goroutines.
	serv.RegisterFunctionHandler(1, c.readCoils)
	serv.RegisterFunctionHandler(4, c.readInputRegisters)
	serv.RegisterFunctionHandler(5, c.writeSingleCoil)

	if err := serv.ListenTCP(c.cfg.Addr); err != nil {
		return fmt.Errorf("mbserver listen tcp %s: %w", c.cfg.Addr, err)
	}
	c.log.Infow("modbus_listening", "addr", c.cfg.Addr, "unit_id", c.cfg.UnitID)

	<-ctx.Done()
	serv.Close()
	return ctx.Err()
}

// readCoils exposes coil 0: running.
func (c *Controller) readCoils(_ *mbserver.Server, frame mbserver.Framer) ([]byte, *mbserver.Exception) {
	data := frame.GetData()
	if len(data) < 4 {
		return []byte{}, &mbserver.IllegalDataValue
	}
	start := binary.BigEndian.Uint16(data[0:2])
	qty := binary.BigEndian.Uint16(data[2:4])
	if qty == 0 || qty > 2000 {
		return []byte{}, &mbserver.IllegalDataValue
	}
	if start != 0 || qty != 1 {
		return []byte{}, &mbserver.IllegalDataAddress
	}
	s, err := c.svc.GetState(context.Background())
	if err != nil {
		return []byte{}, &mbserver.SlaveDeviceFailure
	}
	coil := byte(0)
	if s.State == "RUNNING" {
		coil = 0x01
	}
	return []byte{1, coil}, &mbserver.Success
}

func (c *Controller) readInputRegisters(_ *mbserver.Server, frame mbserver.Framer) ([]byte, *mbserver.Exception) {
	data := frame.GetData()
	if len(data) < 4 {
		return []byte{}, &mbserver.IllegalDataValue
	}
	start := int(binary.BigEndian.Uint16(data[0:2]))
	qty := int(binary.BigEndian.Uint16(data[2:4]))
	if qty == 0 || qty > 125 {
		return []byte{}, &mbserver.IllegalDataValue
	}
	if start+qty > inputRegisters {
		return []byte{}, &mbserver.IllegalDataAddress
	}
	s, err := c.svc.GetState(context.Background())
	if err != nil {
		return []byte{}, &mbserver.SlaveDeviceFailure
	}
	regs := encodeState(s)

	resp := make([]byte, 1+qty*2)
	resp[0] = byte(qty * 2)
	for i := 0; i < qty; i++ {
		binary.BigEndian.PutUint16(resp[1+i*2:3+i*2], regs[start+i])
	}
	return resp, &mbserver.Success
}

// writeSingleCoil accepts OFF on coil 0 as abort. A firing cannot be
// started over Modbus since there is no way to name the profile.
func (c *Controller) writeSingleCoil(_ *mbserver.Server, frame mbserver.Framer) ([]byte, *mbserver.Exception) {
	data := frame.GetData()
	if len(data) < 4 {
		return []byte{}, &mbserver.IllegalDataValue
	}
	addr := binary.BigEndian.Uint16(data[0:2])
	value := binary.BigEndian.Uint16(data[2:4])
	if addr != 0 {
		return []byte{}, &mbserver.IllegalDataAddress
	}
	if value != 0x0000 {
		return []byte{}, &mbserver.IllegalDataValue
	}
	if err := c.svc.Abort(context.Background()); err != nil {
		// Already idle is not a failure for a coil write.
		c.log.Debugw("modbus_abort", "err", err)
	}

	resp := make([]byte, 4)
	copy(resp, data[0:4])
	return resp, &mbserver.Success
}

func encodeState(s models.OvenState) [inputRegisters]uint16 {
	var regs [inputRegisters]uint16
	regs[RegTemperature] = encodeTemp(s.Temperature)
	regs[RegTarget] = encodeTemp(s.Target)
	regs[RegRuntime] = encodeUnsigned(s.Runtime)
	regs[RegTotalTime] = encodeUnsigned(s.TotalTime)
	regs[RegHeatDuty] = encodeUnsigned(s.HeatDuty * DutyScale)
	regs[RegRuntimeHi], regs[RegRuntimeLo] = encodeUnsigned32(s.Runtime)
	regs[RegTotalTimeHi], regs[RegTotalTimeLo] = encodeUnsigned32(s.TotalTime)
	if s.State == "RUNNING" {
		regs[RegState] = 1
	}
	return regs
}

// encodeTemp stores a signed, scaled temperature, saturating at the int16
// range.
func encodeTemp(v float64) uint16 {
	r := min(max(int(math.Round(v*TemperatureScale)), math.MinInt16), math.MaxInt16)
	return uint16(int16(r))
}

func decodeTemp(u uint16) float64 {
	return float64(int16(u)) / TemperatureScale
}

func encodeUnsigned(v float64) uint16 {
	return uint16(min(max(int(math.Round(v)), 0), math.MaxUint16))
}

// encodeUnsigned32 splits a non-negative value into high and low words,
// saturating at the uint32 range.
func encodeUnsigned32(v float64) (hi, lo uint16) {
	u := uint32(min(max(int64(math.Round(v)), 0), math.MaxUint32))
	return uint16(u >> 16), uint16(u)
}
