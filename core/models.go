package core

import (
	"image"
	"strings"
)

// ========== 文档侧数据结构 ==========

// ElementType 分区器输出的元素类型
type ElementType string

const (
	ElementText  ElementType = "Text"
	ElementTable ElementType = "Table"
	ElementImage ElementType = "Image"
)

// RawElement 外部分区器产生的原始元素，只读
type RawElement struct {
	Type      ElementType `json:"type"`
	Text      string      `json:"text,omitempty"`
	ImagePath string      `json:"image_path,omitempty"`
}

// ArtifactKind 可检索内容单元的类型
type ArtifactKind string

const (
	KindText  ArtifactKind = "text"
	KindTable ArtifactKind = "table"
	KindImage ArtifactKind = "image"
)

// Valid reports whether k is one of the known artifact kinds.
func (k ArtifactKind) Valid() bool {
	switch k {
	case KindText, KindTable, KindImage:
		return true
	}
	return false
}

// Artifact is one ingested unit: the full content plus the short summary
// used for retrieval. Content holds base64 for images.
type Artifact struct {
	ID         string       `json:"id"`
	Kind       ArtifactKind `json:"kind,omitempty"`
	Content    string       `json:"content"`
	Summary    string       `json:"summary,omitempty"`
	SourcePath string       `json:"source_path,omitempty"`
	Score      float64      `json:"score,omitempty"`
}

// IndexEntry 双存储索引中的检索条目，DocID 指回 Artifact
type IndexEntry struct {
	ID         string       `json:"id"`
	Summary    string       `json:"summary"`
	Kind       ArtifactKind `json:"kind"`
	DocID      string       `json:"doc_id"`
	SourcePath string       `json:"source_path,omitempty"`
}

// ImageAsset 分区器写到磁盘上的图片
type ImageAsset struct {
	Path     string `json:"path"`
	Document string `json:"document"`
	Page     int    `json:"page,omitempty"`
	Index    int    `json:"index,omitempty"`
}

// ========== 视频侧数据结构 ==========

// FrameSample 采样得到的帧，Index 为原视频中的帧序号
type FrameSample struct {
	Index     int         `json:"index"`
	Timestamp float64     `json:"timestamp"`
	Image     image.Image `json:"-"`
}

// KeyFrame is a sample that differs materially from the sample before it.
type KeyFrame = FrameSample

type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// VideoSegmentRecord 一个关键帧对应的检索记录
type VideoSegmentRecord struct {
	ID                string  `json:"id,omitempty"`
	VideoID           string  `json:"video_id,omitempty"`
	Timestamp         float64 `json:"timestamp"`
	AudioText         string  `json:"audio_text"`
	VisualDescription string  `json:"visual_description"`
	FrameContent      string  `json:"frame_base64,omitempty"`
	Summary           string  `json:"summary"`
	Score             float64 `json:"score,omitempty"`
}

// HasSummary 数据质量检查：空白摘要的记录不入库
func (r VideoSegmentRecord) HasSummary() bool {
	return strings.TrimSpace(r.Summary) != ""
}

// ========== 查询结果 ==========

type VideoSource struct {
	Time string `json:"time"`
	Text string `json:"text"`
}

type QueryResult struct {
	Answer       string        `json:"answer"`
	VideoSources []VideoSource `json:"video_sources"`
	Images       []string      `json:"images"`
}

type IngestReport struct {
	ConversationID string `json:"conversation_id"`
	Collection     string `json:"collection_name"`
	Texts          int    `json:"texts_count,omitempty"`
	Tables         int    `json:"tables_count,omitempty"`
	Images         int    `json:"images_count,omitempty"`
	Segments       int    `json:"segments_count,omitempty"`
	Dropped        int    `json:"dropped_count,omitempty"`
}

// ========== 集合命名 ==========

const (
	docCollectionPrefix   = "doc_"
	videoCollectionPrefix = "video_conv_"
)

func DocCollectionName(conversationID string) string {
	return docCollectionPrefix + conversationID
}

func VideoCollectionName(conversationID string) string {
	return videoCollectionPrefix + conversationID
}

// IsVideoCollection reports whether name follows the video collection layout.
func IsVideoCollection(name string) bool {
	return strings.HasPrefix(name, videoCollectionPrefix)
}
