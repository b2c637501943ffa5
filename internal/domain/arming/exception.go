package arming

import "slices"

// ExceptionRule excludes a point from automatic arming and/or disarming.
// A point without a rule behaves as if both flags were false.
type ExceptionRule struct {
	// PointID is the proevent the rule applies to.
	PointID int64
	// BuildingID is denormalized from the inventory for filtering only.
	BuildingID int64
	// DeviceID is the device the proevent belongs to.
	DeviceID int64
	// IgnoreOnArm keeps the point untouched when the building is armed.
	IgnoreOnArm bool
	// IgnoreOnDisarm keeps the point untouched when the building is disarmed
	// and suppresses "not armed" alerts for it.
	IgnoreOnDisarm bool
}

// ExceptionIndex groups exception rules by building, built once per load.
type ExceptionIndex map[int64]map[int64]ExceptionRule

// IndexExceptions groups a flat rule map by the rules' building id.
func IndexExceptions(rules map[int64]ExceptionRule) ExceptionIndex {
	index := make(ExceptionIndex)

	for pointID, rule := range rules {
		byPoint, ok := index[rule.BuildingID]
		if !ok {
			byPoint = make(map[int64]ExceptionRule)
			index[rule.BuildingID] = byPoint
		}

		rule.PointID = pointID
		byPoint[pointID] = rule
	}

	return index
}

// Rule returns the rule for a point in a building, or the zero rule.
func (idx ExceptionIndex) Rule(buildingID, pointID int64) ExceptionRule {
	rule, ok := idx[buildingID][pointID]
	if !ok {
		return ExceptionRule{
			PointID:    pointID,
			BuildingID: buildingID,
		}
	}

	return rule
}

// IgnoredOnArm returns the sorted ids of the building's points excluded from arming.
func (idx ExceptionIndex) IgnoredOnArm(buildingID int64) []int64 {
	return idx.collect(buildingID, func(r ExceptionRule) bool { return r.IgnoreOnArm })
}

// IgnoredOnDisarm returns the sorted ids of the building's points excluded from disarming.
func (idx ExceptionIndex) IgnoredOnDisarm(buildingID int64) []int64 {
	return idx.collect(buildingID, func(r ExceptionRule) bool { return r.IgnoreOnDisarm })
}

func (idx ExceptionIndex) collect(buildingID int64, match func(ExceptionRule) bool) []int64 {
	ids := make([]int64, 0, len(idx[buildingID]))

	for pointID, rule := range idx[buildingID] {
		if match(rule) {
			ids = append(ids, pointID)
		}
	}

	slices.Sort(ids)

	return ids
}
