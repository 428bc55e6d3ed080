package models

import (
	"github.com/nvr-ai/go-detect/common"
	"github.com/pkg/errors"
)

// ModelFamily is the dataset convention a model was trained with.
type ModelFamily string

const (
	// ModelFamilyYOLO is the 80 COCO classes without a background class.
	ModelFamilyYOLO ModelFamily = "yolo"
	// ModelFamilyCOCO is the 80 COCO classes preceded by a background class.
	ModelFamilyCOCO ModelFamily = "coco"
	// ModelFamilyVOC is the 20 Pascal VOC classes.
	ModelFamilyVOC ModelFamily = "voc"
	// ModelFamilyScale is the digit and unit classes of a weighing scale display reader.
	ModelFamilyScale ModelFamily = "scale"
)

var yoloClasses = []string{
	"person", "bicycle", "car", "motorcycle", "airplane", "bus", "train", "truck", "boat",
	"traffic light", "fire hydrant", "stop sign", "parking meter", "bench", "bird", "cat", "dog", "horse",
	"sheep", "cow", "elephant", "bear", "zebra", "giraffe", "backpack", "umbrella", "handbag", "tie",
	"suitcase", "frisbee", "skis", "snowboard", "sports ball", "kite", "baseball bat", "baseball glove",
	"skateboard", "surfboard", "tennis racket", "bottle", "wine glass", "cup", "fork", "knife", "spoon",
	"bowl", "banana", "apple", "sandwich", "orange", "broccoli", "carrot", "hot dog", "pizza", "donut",
	"cake", "chair", "couch", "potted plant", "bed", "dining table", "toilet", "tv", "laptop", "mouse",
	"remote", "keyboard", "cell phone", "microwave", "oven", "toaster", "sink", "refrigerator", "book",
	"clock", "vase", "scissors", "teddy bear", "hair drier", "toothbrush",
}

var vocClasses = []string{
	"aeroplane", "bicycle", "bird", "boat", "bottle", "bus", "car", "cat", "chair", "cow",
	"diningtable", "dog", "horse", "motorbike", "person", "pottedplant", "sheep", "sofa", "train", "tvmonitor",
}

var scaleClasses = []string{
	"0", "1", "2", "3", "4", "5", "6", "7", "8", "9", ".", "Lb", "Kg", "OZ", "jin",
}

// BuiltinLabels returns the label table of a known model family.
//
// Arguments:
//   - family: The model family.
//
// Returns:
//   - Labels: The label table.
//   - error: A wrapped common.ErrConfiguration for an unknown family.
func BuiltinLabels(family ModelFamily) (Labels, error) {
	switch family {
	case ModelFamilyYOLO:
		return NewLabels(yoloClasses)
	case ModelFamilyCOCO:
		return NewLabels(append([]string{"__background__"}, yoloClasses...))
	case ModelFamilyVOC:
		return NewLabels(vocClasses)
	case ModelFamilyScale:
		return NewLabels(scaleClasses)
	default:
		return Labels{}, errors.Wrapf(common.ErrConfiguration, "no built-in labels for family %q", family)
	}
}

// MapClass maps a class index of one label table onto another by name, e.g. a COCO
// index (with background) onto the YOLO numbering.
//
// Returns:
//   - int: The index in to.
//   - error: A wrapped common.ErrUnknownClassIndex if idx or its name is not present.
func MapClass(from Labels, idx int, to Labels) (int, error) {
	name, err := from.Name(idx)
	if err != nil {
		return -1, err
	}
	toIdx := to.Index(name)
	if toIdx < 0 {
		return -1, errors.Wrapf(common.ErrUnknownClassIndex, "class %q not in target labels", name)
	}
	return toIdx, nil
}
