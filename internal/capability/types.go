package capability

// Type is the semantic category a discovered entity is represented as.
type Type string

// Sensor types.
const (
	TypeTemperatureSensor Type = "temperature_sensor"
	TypeHumiditySensor    Type = "humidity_sensor"
	TypePressureSensor    Type = "pressure_sensor"
	TypeLightSensor       Type = "light_sensor"
	TypeElectricalSensor  Type = "electrical_sensor"
	TypeAirQualitySensor  Type = "air_quality_sensor"
	TypeOccupancySensor   Type = "occupancy_sensor"
	TypeContactSensor     Type = "contact_sensor"
	TypeWaterLeakDetector Type = "water_leak_detector"
	TypeSmokeCOAlarm      Type = "smoke_co_alarm"
)

// Actuator types.
const (
	TypeDimmableLight  Type = "dimmable_light"
	TypeOnOffSwitch    Type = "on_off_switch"
	TypeOnOffOutlet    Type = "on_off_outlet"
	TypeWaterValve     Type = "water_valve"
	TypeWindowCovering Type = "window_covering"
	TypeFan            Type = "fan"
	TypeAirPurifier    Type = "air_purifier"
	TypeThermostat     Type = "thermostat"
	TypeDoorLock       Type = "door_lock"
)

// Structural types, used when nothing semantic is known.
const (
	TypeModeSelect    Type = "mode_select"
	TypeGenericSwitch Type = "generic_switch"
)

// deviceTypeIDs are the Matter device type identifiers for each Type.
var deviceTypeIDs = map[Type]uint32{
	TypeTemperatureSensor: 0x0302,
	TypeHumiditySensor:    0x0307,
	TypePressureSensor:    0x0305,
	TypeLightSensor:       0x0106,
	TypeElectricalSensor:  0x0510,
	TypeAirQualitySensor:  0x002C,
	TypeOccupancySensor:   0x0107,
	TypeContactSensor:     0x0015,
	TypeWaterLeakDetector: 0x0043,
	TypeSmokeCOAlarm:      0x0076,
	TypeDimmableLight:     0x0101,
	TypeOnOffSwitch:       0x0103,
	TypeOnOffOutlet:       0x010A,
	TypeWaterValve:        0x0042,
	TypeWindowCovering:    0x0202,
	TypeFan:               0x002B,
	TypeAirPurifier:       0x002D,
	TypeThermostat:        0x0301,
	TypeDoorLock:          0x000A,
	TypeModeSelect:        0x0027,
	TypeGenericSwitch:     0x000F,
}

// AllTypes returns every capability type.
func AllTypes() []Type {
	return []Type{
		TypeTemperatureSensor, TypeHumiditySensor, TypePressureSensor,
		TypeLightSensor, TypeElectricalSensor, TypeAirQualitySensor,
		TypeOccupancySensor, TypeContactSensor, TypeWaterLeakDetector,
		TypeSmokeCOAlarm, TypeDimmableLight, TypeOnOffSwitch, TypeOnOffOutlet,
		TypeWaterValve, TypeWindowCovering, TypeFan, TypeAirPurifier,
		TypeThermostat, TypeDoorLock, TypeModeSelect, TypeGenericSwitch,
	}
}

// Valid reports whether t is a known capability type.
func (t Type) Valid() bool {
	_, ok := deviceTypeIDs[t]
	return ok
}

// DeviceTypeID returns the Matter device type identifier for t, or 0 if t
// is unknown.
func (t Type) DeviceTypeID() uint32 {
	return deviceTypeIDs[t]
}

// IsSensor reports whether t only reports state.
func (t Type) IsSensor() bool {
	switch t {
	case TypeTemperatureSensor, TypeHumiditySensor, TypePressureSensor,
		TypeLightSensor, TypeElectricalSensor, TypeAirQualitySensor,
		TypeOccupancySensor, TypeContactSensor, TypeWaterLeakDetector,
		TypeSmokeCOAlarm:
		return true
	default:
		return false
	}
}
