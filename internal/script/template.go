package script

// luaTemplate is the control script handed to the autopilot's embedded
// Lua runtime. It registers a per-camera parameter table, reads the
// focus and zoom servo outputs through their function codes, interpolates
// the closest and furthest calibration curves at the current zoom
// position, scales the focus band between them by MARGIN_GAIN about its
// centre, clamps the commanded focus into that band, and writes the result
// to the script-driven output channel at 10 Hz.
const luaTemplate = `-- Generated file, do not edit by hand.
-- Camera focus/zoom correlation script.

local PARAM_TABLE_KEY = {{.ParamTableKey}}
local PARAM_TABLE_PREFIX = "{{.ParamPrefix}}"

assert(param:add_table(PARAM_TABLE_KEY, PARAM_TABLE_PREFIX, 5), "could not add param table")
assert(param:add_param(PARAM_TABLE_KEY, 1, "MARGIN_GAIN", {{.MarginGain}}), "could not add MARGIN_GAIN")
assert(param:add_param(PARAM_TABLE_KEY, 2, "K_FOCUS", {{.KFocus}}), "could not add K_FOCUS")
assert(param:add_param(PARAM_TABLE_KEY, 3, "K_ZOOM", {{.KZoom}}), "could not add K_ZOOM")
assert(param:add_param(PARAM_TABLE_KEY, 4, "K_SCRIPT", {{.KScript}}), "could not add K_SCRIPT")
assert(param:add_param(PARAM_TABLE_KEY, 5, "ENABLE", {{.Enable}}), "could not add ENABLE")

local MARGIN_GAIN = Parameter(PARAM_TABLE_PREFIX .. "MARGIN_GAIN")
local K_FOCUS = Parameter(PARAM_TABLE_PREFIX .. "K_FOCUS")
local K_ZOOM = Parameter(PARAM_TABLE_PREFIX .. "K_ZOOM")
local K_SCRIPT = Parameter(PARAM_TABLE_PREFIX .. "K_SCRIPT")
local ENABLE = Parameter(PARAM_TABLE_PREFIX .. "ENABLE")

-- {zoom=<pwm>, focus=<pwm>} samples, ordered by ascending zoom PWM.
local CLOSEST_POINTS = {{.ClosestPoints}}
local FURTHEST_POINTS = {{.FurthestPoints}}

local UPDATE_INTERVAL_MS = 100

-- interpolate returns the focus PWM a calibration curve predicts for the
-- given zoom PWM, clamping to the curve's end samples outside its range.
local function interpolate(points, zoom_pwm)
    if #points == 0 then
        return nil
    end
    if zoom_pwm <= points[1].zoom then
        return points[1].focus
    end
    if zoom_pwm >= points[#points].zoom then
        return points[#points].focus
    end

    for i = 1, #points - 1 do
        local a, b = points[i], points[i + 1]
        if zoom_pwm >= a.zoom and zoom_pwm <= b.zoom then
            local span = b.zoom - a.zoom
            if span == 0 then
                return a.focus
            end
            local t = (zoom_pwm - a.zoom) / span
            return a.focus + t * (b.focus - a.focus)
        end
    end

    return points[#points].focus
end

-- clamp restricts v to [lo, hi], widened by margin_gain on either side.
local function clamp(v, lo, hi, margin_gain)
    local margin = (hi - lo) * (margin_gain - 1.0) / 2.0
    lo, hi = lo - margin, hi + margin
    if v < lo then
        return lo
    end
    if v > hi then
        return hi
    end
    return v
end

local function update()
    if ENABLE:get() == 0 then
        return update, UPDATE_INTERVAL_MS
    end

    local focus_channel = SRV_Channels:find_channel(K_FOCUS:get())
    local zoom_channel = SRV_Channels:find_channel(K_ZOOM:get())
    local script_channel = SRV_Channels:find_channel(K_SCRIPT:get())
    if focus_channel == nil or zoom_channel == nil or script_channel == nil then
        return update, UPDATE_INTERVAL_MS
    end

    local focus_pwm = SRV_Channels:get_output_pwm(K_FOCUS:get())
    local zoom_pwm = SRV_Channels:get_output_pwm(K_ZOOM:get())

    local closest_focus = interpolate(CLOSEST_POINTS, zoom_pwm)
    local furthest_focus = interpolate(FURTHEST_POINTS, zoom_pwm)
    if closest_focus == nil or furthest_focus == nil then
        return update, UPDATE_INTERVAL_MS
    end

    local lo, hi = closest_focus, furthest_focus
    if lo > hi then
        lo, hi = hi, lo
    end
    local corrected_pwm = clamp(focus_pwm, lo, hi, MARGIN_GAIN:get())

    SRV_Channels:set_output_pwm(K_SCRIPT:get(), math.floor(corrected_pwm + 0.5))

    return update, UPDATE_INTERVAL_MS
end

return update, UPDATE_INTERVAL_MS
`
