package processors

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"

	"multimodalRAG/core"
)

// UnstructuredExtractor 调用 python unstructured 的 partition_pdf 切分文档
type UnstructuredExtractor struct {
	Python string
}

const partitionScript = `import json, os, sys
from unstructured.partition.pdf import partition_pdf

doc_path, image_dir, doc_key = sys.argv[1], sys.argv[2], sys.argv[3]
os.makedirs(image_dir, exist_ok=True)
before = set(os.listdir(image_dir))

elements = partition_pdf(
    filename=doc_path,
    extract_images_in_pdf=True,
    infer_table_structure=True,
    chunking_strategy="by_title",
    max_characters=4000,
    new_after_n_chars=3800,
    combine_text_under_n_chars=2000,
    image_output_dir_path=image_dir,
    extract_image_block_types=["Image", "Table"],
    extract_image_block_to_payload=False,
)

for name in sorted(set(os.listdir(image_dir)) - before):
    if "__" not in name:
        os.rename(os.path.join(image_dir, name), os.path.join(image_dir, doc_key + "__" + name))

out = []
for el in elements:
    kind = type(el).__name__
    if "Table" in kind:
        out.append({"type": "Table", "text": str(el)})
    elif "Image" in kind:
        out.append({"type": "Image", "text": str(el)})
    else:
        out.append({"type": "Text", "text": str(el)})
print(json.dumps(out, ensure_ascii=False))
`

func (u UnstructuredExtractor) Extract(ctx context.Context, documentPath, imageDir string) ([]core.RawElement, error) {
	scriptPath, err := writeScript("partition_document.py", partitionScript)
	if err != nil {
		return nil, err
	}
	python := u.Python
	if python == "" {
		python = "python"
	}
	cmd := exec.CommandContext(ctx, python, scriptPath, documentPath, imageDir, DocumentKey(documentPath))
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("document partition failed: %v", err)
	}
	var elements []core.RawElement
	if err := json.Unmarshal(output, &elements); err != nil {
		return nil, fmt.Errorf("failed to parse partition output: %v", err)
	}
	return elements, nil
}
