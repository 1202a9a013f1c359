package discovery

import "strings"

// Abbreviated keys accepted in config payloads, as emitted by ESPHome,
// Tasmota and other gateways that keep retained messages small.
var entityAbbreviations = map[string]string{
	"act_t":         "action_topic",
	"avty":          "availability",
	"avty_mode":     "availability_mode",
	"avty_t":        "availability_topic",
	"avty_tpl":      "availability_template",
	"cmd_t":         "command_topic",
	"cmd_tpl":       "command_template",
	"dev":           "device",
	"dev_cla":       "device_class",
	"dsp_prc":       "display_precision",
	"en":            "enabled_by_default",
	"ent_cat":       "entity_category",
	"frc_upd":       "force_update",
	"ic":            "icon",
	"json_attr_t":   "json_attributes_topic",
	"json_attr_tpl": "json_attributes_template",
	"mode_cmd_t":    "mode_command_topic",
	"mode_stat_t":   "mode_state_topic",
	"o":             "origin",
	"obj_id":        "object_id",
	"opt":           "optimistic",
	"ops":           "options",
	"p":             "platform",
	"pl_avail":      "payload_available",
	"pl_not_avail":  "payload_not_available",
	"pl_off":        "payload_off",
	"pl_on":         "payload_on",
	"pos_t":         "position_topic",
	"ret":           "retain",
	"stat_cla":      "state_class",
	"stat_off":      "state_off",
	"stat_on":       "state_on",
	"stat_t":        "state_topic",
	"stat_tpl":      "state_template",
	"stat_val_tpl":  "state_value_template",
	"sug_dsp_prc":   "suggested_display_precision",
	"temp_cmd_t":    "temperature_command_topic",
	"temp_stat_t":   "temperature_state_topic",
	"temp_unit":     "temperature_unit",
	"uniq_id":       "unique_id",
	"unit_of_meas":  "unit_of_measurement",
	"val_tpl":       "value_template",
}

var deviceAbbreviations = map[string]string{
	"cns":    "connections",
	"cu":     "configuration_url",
	"hw":     "hw_version",
	"ids":    "identifiers",
	"mdl":    "model",
	"mdl_id": "model_id",
	"mf":     "manufacturer",
	"sa":     "suggested_area",
	"sn":     "serial_number",
	"sw":     "sw_version",
}

var originAbbreviations = map[string]string{
	"sw":  "sw_version",
	"url": "support_url",
}

// expandAbbreviations rewrites abbreviated keys in place, including the
// nested device and origin blocks. A full key already present wins over
// its abbreviation.
func expandAbbreviations(doc map[string]any) {
	expandKeys(doc, entityAbbreviations)
	if dev, ok := doc["device"].(map[string]any); ok {
		expandKeys(dev, deviceAbbreviations)
	}
	if origin, ok := doc["origin"].(map[string]any); ok {
		expandKeys(origin, originAbbreviations)
	}
}

func expandKeys(m map[string]any, table map[string]string) {
	for short, full := range table {
		v, ok := m[short]
		if !ok {
			continue
		}
		delete(m, short)
		if _, exists := m[full]; !exists {
			m[full] = v
		}
	}
}

// expandBaseTopic substitutes the "~" base topic into *_topic values that
// start or end with it.
func expandBaseTopic(doc map[string]any) {
	base, ok := doc["~"].(string)
	if !ok || base == "" {
		return
	}
	for key, v := range doc {
		s, ok := v.(string)
		if !ok || !strings.HasSuffix(key, "_topic") {
			continue
		}
		switch {
		case strings.HasPrefix(s, "~"):
			doc[key] = base + s[1:]
		case strings.HasSuffix(s, "~"):
			doc[key] = s[:len(s)-1] + base
		}
	}
}
