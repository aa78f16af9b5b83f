package service

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"
)

type fakeDetector struct {
	detections []types.TextDetection
	err        error
	image      []byte
}

func (f *fakeDetector) DetectText(_ context.Context, params *rekognition.DetectTextInput, _ ...func(*rekognition.Options)) (*rekognition.DetectTextOutput, error) {
	f.image = params.Image.Bytes
	if f.err != nil {
		return nil, f.err
	}
	return &rekognition.DetectTextOutput{TextDetections: f.detections}, nil
}

func detection(text string, confidence float32, kind types.TextTypes) types.TextDetection {
	return types.TextDetection{DetectedText: aws.String(text), Confidence: aws.Float32(confidence), Type: kind}
}

// Test: chọn khối văn bản khớp biển số với độ tin cậy cao nhất
func TestLPRService_PicksBestPlate(t *testing.T) {
	detector := &fakeDetector{detections: []types.TextDetection{
		detection("VIETNAM", 99.9, types.TextTypesLine),
		detection("29A-123.45", 91.0, types.TextTypesLine),
		detection("51G-12345", 97.2, types.TextTypesLine),
		detection("30K-99999", 99.0, "OTHER"),
	}}
	svc := &LPRService{detector: detector}
	image := base64.StdEncoding.EncodeToString([]byte("jpeg bytes"))

	plate, confidence, err := svc.RecognizePlate(context.Background(), "data:image/jpeg;base64,"+image)
	if err != nil {
		t.Fatalf("recognize: %v", err)
	}
	if plate != "51G12345" || confidence != 97.2 {
		t.Errorf("expected 51G12345 at 97.2, got %s at %.1f", plate, confidence)
	}
	if string(detector.image) != "jpeg bytes" {
		t.Errorf("expected decoded image bytes, got %q", detector.image)
	}
}

// Test: không có khối nào giống biển số trả về ErrPlateNotRecognized
func TestLPRService_NoPlate(t *testing.T) {
	svc := &LPRService{detector: &fakeDetector{detections: []types.TextDetection{
		detection("NO PARKING", 99, types.TextTypesLine),
	}}}
	_, _, err := svc.RecognizePlate(context.Background(), base64.StdEncoding.EncodeToString([]byte("x")))
	if !errors.Is(err, ErrPlateNotRecognized) {
		t.Errorf("expected ErrPlateNotRecognized, got %v", err)
	}
}

// Test: base64 hỏng, lỗi Rekognition và client chưa khởi tạo đều trả lỗi
func TestLPRService_Errors(t *testing.T) {
	ctx := context.Background()
	svc := &LPRService{detector: &fakeDetector{}}
	if _, _, err := svc.RecognizePlate(ctx, "%%%"); err == nil {
		t.Error("expected error for invalid base64")
	}

	rekErr := errors.New("throttled")
	svc = &LPRService{detector: &fakeDetector{err: rekErr}}
	if _, _, err := svc.RecognizePlate(ctx, "aGVsbG8="); !errors.Is(err, rekErr) {
		t.Errorf("expected wrapped Rekognition error, got %v", err)
	}

	if _, _, err := NewLPRService(nil).RecognizePlate(ctx, "aGVsbG8="); err == nil {
		t.Error("expected error without Rekognition client")
	}
}
