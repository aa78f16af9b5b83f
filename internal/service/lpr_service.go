package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"parksmart/internal/domain"
	"regexp"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"
)

var ErrPlateNotRecognized = errors.New("không nhận dạng được biển số từ ảnh")

// PlateRecognizer đọc biển số từ ảnh chụp ở cổng.
type PlateRecognizer interface {
	RecognizePlate(ctx context.Context, imageBase64 string) (plate string, confidence float32, err error)
}

// textDetector là phần của rekognition.Client mà LPRService dùng.
type textDetector interface {
	DetectText(ctx context.Context, params *rekognition.DetectTextInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectTextOutput, error)
}

// Biển số Việt Nam đã chuẩn hóa, ví dụ 29A12345, 51G1234.
var plateRegex = regexp.MustCompile(`^[0-9]{2}[A-Z]{1,2}[0-9]{3,5}$`)

type LPRService struct {
	detector textDetector
}

func NewLPRService(rekClient *rekognition.Client) *LPRService {
	if rekClient == nil {
		return &LPRService{}
	}
	return &LPRService{detector: rekClient}
}

func (s *LPRService) RecognizePlate(ctx context.Context, imageBase64 string) (string, float32, error) {
	if s.detector == nil {
		return "", 0, fmt.Errorf("Rekognition client chưa được khởi tạo")
	}
	if i := strings.Index(imageBase64, ","); i >= 0 && strings.HasPrefix(imageBase64, "data:") {
		imageBase64 = imageBase64[i+1:]
	}
	imageBytes, err := base64.StdEncoding.DecodeString(imageBase64)
	if err != nil {
		return "", 0, fmt.Errorf("ảnh base64 không hợp lệ: %w", err)
	}

	result, err := s.detector.DetectText(ctx, &rekognition.DetectTextInput{
		Image: &types.Image{Bytes: imageBytes},
	})
	if err != nil {
		log.Printf("LPRService: Lỗi khi gọi Rekognition DetectText: %v", err)
		return "", 0, fmt.Errorf("lỗi Rekognition: %w", err)
	}

	var best string
	var bestConfidence float32
	for _, detection := range result.TextDetections {
		if detection.DetectedText == nil || detection.Confidence == nil {
			continue
		}
		if detection.Type != types.TextTypesLine && detection.Type != types.TextTypesWord {
			continue
		}
		candidate := domain.NormalizeVehicleNumber(*detection.DetectedText)
		if plateRegex.MatchString(candidate) && *detection.Confidence > bestConfidence {
			best, bestConfidence = candidate, *detection.Confidence
		}
	}

	if best == "" {
		log.Printf("LPRService: Rekognition trả về %d khối văn bản nhưng không khối nào khớp biển số", len(result.TextDetections))
		return "", 0, ErrPlateNotRecognized
	}
	log.Printf("LPRService: Biển số được chọn: '%s' với độ tin cậy: %.2f", best, bestConfidence)
	return best, bestConfidence, nil
}
