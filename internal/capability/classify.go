package capability

import "github.com/nerrad567/gray-logic-bridge/internal/discovery"

// byDeviceClass maps discovery device classes to capability types.
var byDeviceClass = map[string]Type{
	"temperature": TypeTemperatureSensor,
	"humidity":    TypeHumiditySensor,
	"pressure":    TypePressureSensor,
	"illuminance": TypeLightSensor,

	"power":   TypeElectricalSensor,
	"energy":  TypeElectricalSensor,
	"voltage": TypeElectricalSensor,
	"current": TypeElectricalSensor,

	"carbon_dioxide":             TypeAirQualitySensor,
	"carbon_monoxide":            TypeAirQualitySensor,
	"volatile_organic_compounds": TypeAirQualitySensor,

	"motion":   TypeOccupancySensor,
	"presence": TypeOccupancySensor,
	"door":     TypeContactSensor,
	"window":   TypeContactSensor,
	"moisture": TypeWaterLeakDetector,
	"smoke":    TypeSmokeCOAlarm,
	"gas":      TypeSmokeCOAlarm,

	"light":        TypeDimmableLight,
	"switch":       TypeOnOffSwitch,
	"outlet":       TypeOnOffOutlet,
	"valve":        TypeWaterValve,
	"cover":        TypeWindowCovering,
	"fan":          TypeFan,
	"humidifier":   TypeAirPurifier,
	"dehumidifier": TypeAirPurifier,
	"thermostat":   TypeThermostat,
	"lock":         TypeDoorLock,
}

// byUnit is consulted when the device class is absent or unknown.
var byUnit = map[string]Type{
	"W":   TypeElectricalSensor,
	"Wh":  TypeElectricalSensor,
	"kWh": TypeElectricalSensor,
	"°C":  TypeTemperatureSensor,
	"°F":  TypeTemperatureSensor,
}

// Discovery types with structural rules.
const (
	discoveryNumber = "number"
	discoverySelect = "select"
)

// Classify returns the capability type for an entity. First match wins:
//
//  1. device class
//  2. unit of measurement
//  3. number entities: a 0..100 range is a dimmable light, anything else
//     a mode select
//  4. select entities are mode selects
//  5. generic switch
//
// Classify is pure and total; a nil entity is a generic switch.
func Classify(e *discovery.EntityRecord) Type {
	if e == nil {
		return TypeGenericSwitch
	}

	if t, ok := byDeviceClass[e.DeviceClass]; ok {
		return t
	}
	if t, ok := byUnit[e.UnitOfMeasurement]; ok {
		return t
	}

	switch e.DiscoveryType {
	case discoveryNumber:
		if r := e.NumericRange; r != nil && r.Min >= 0 && r.Max <= 100 {
			return TypeDimmableLight
		}
		return TypeModeSelect
	case discoverySelect:
		return TypeModeSelect
	}

	return TypeGenericSwitch
}
