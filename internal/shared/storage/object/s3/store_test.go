package s3

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

func TestApplyPrefix(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		prefix string
		key    string
		want   string
	}{
		{name: "no prefix", prefix: "", key: "owner/resume.pdf", want: "owner/resume.pdf"},
		{name: "simple prefix", prefix: "root", key: "owner/resume.pdf", want: "root/owner/resume.pdf"},
		{name: "prefix trailing slash", prefix: "root/", key: "owner/resume.pdf", want: "root/owner/resume.pdf"},
		{name: "prefix and key slashes", prefix: "/root/", key: "/owner/resume.pdf", want: "root/owner/resume.pdf"},
		{name: "nested prefix", prefix: "root/sub", key: "owner/resume.pdf", want: "root/sub/owner/resume.pdf"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := applyPrefix(tt.prefix, tt.key); got != tt.want {
				t.Fatalf("applyPrefix(%q, %q) = %q, want %q", tt.prefix, tt.key, got, tt.want)
			}
		})
	}
}

func TestApplyEncryption(t *testing.T) {
	kms := &s3.PutObjectInput{}
	applyEncryption(kms, "arn:aws:kms:key")
	if kms.ServerSideEncryption != s3types.ServerSideEncryptionAwsKms || kms.SSEKMSKeyId == nil {
		t.Fatalf("expected SSE-KMS, got %v", kms.ServerSideEncryption)
	}

	aes := &s3.PutObjectInput{}
	applyEncryption(aes, "")
	if aes.ServerSideEncryption != s3types.ServerSideEncryptionAes256 || aes.SSEKMSKeyId != nil {
		t.Fatalf("expected SSE-S3, got %v", aes.ServerSideEncryption)
	}
}
