package arming

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"

	domain "github.com/oshokin/arming-scheduler/internal/domain/arming"
)

var errMalformedResult = errors.New("malformed reconciliation result")

// ResultToStruct encodes a reconciliation result for the wire.
func ResultToStruct(r domain.Result) (*structpb.Struct, error) {
	fields := map[string]any{
		"building_id": r.BuildingID,
		"building":    r.Building,
		"action":      string(r.Action),
		"target":      r.Target.String(),
		"affected":    r.Affected,
		"notified":    r.Notified,
		"skipped":     string(r.Skipped),
	}

	if r.Err != nil {
		fields["error"] = r.Err.Error()
	}

	s, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}

	return s, nil
}

// ResultsToList encodes a pass's results for the wire.
func ResultsToList(results []domain.Result) (*structpb.ListValue, error) {
	list := &structpb.ListValue{Values: make([]*structpb.Value, 0, len(results))}

	for _, r := range results {
		s, err := ResultToStruct(r)
		if err != nil {
			return nil, err
		}

		list.Values = append(list.Values, structpb.NewStructValue(s))
	}

	return list, nil
}

// ResultFromStruct decodes a wire result. Err carries the remote message text.
func ResultFromStruct(s *structpb.Struct) (domain.Result, error) {
	if s == nil {
		return domain.Result{}, errMalformedResult
	}

	fields := s.GetFields()

	result := domain.Result{
		BuildingID: int64(fields["building_id"].GetNumberValue()),
		Building:   fields["building"].GetStringValue(),
		Action:     domain.Action(fields["action"].GetStringValue()),
		Affected:   int64(fields["affected"].GetNumberValue()),
		Notified:   int(fields["notified"].GetNumberValue()),
		Skipped:    domain.SkipReason(fields["skipped"].GetStringValue()),
	}

	if fields["target"].GetStringValue() == domain.Armed.String() {
		result.Target = domain.Armed
	}

	if msg := fields["error"].GetStringValue(); msg != "" {
		result.Err = errors.New(msg) //nolint:err113 // Carries a remote error message.
	}

	return result, nil
}

// ResultsFromList decodes a pass's results.
func ResultsFromList(list *structpb.ListValue) ([]domain.Result, error) {
	results := make([]domain.Result, 0, len(list.GetValues()))

	for _, v := range list.GetValues() {
		s := v.GetStructValue()
		if s == nil {
			return nil, errMalformedResult
		}

		r, err := ResultFromStruct(s)
		if err != nil {
			return nil, err
		}

		results = append(results, r)
	}

	return results, nil
}
