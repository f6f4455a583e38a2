package parser

import (
	"strings"
	"testing"
)

const naverArticlePage = `<!DOCTYPE html>
<html><head><title>케어젠 뉴스</title><script>var tracking = "케어젠 광고 스크립트 내용입니다";</script></head>
<body>
  <nav>홈 &gt; 경제 &gt; 바이오 산업 섹션 메뉴입니다</nav>
  <div id="dic_area">
    케어젠이 미국 대형 유통사와 펩타이드 원료 공급 계약을 체결했다고 3일 밝혔다.
    <br>
    계약 규모는 약 500억원으로 지난해 매출의 절반 수준에 해당한다.
    <div class="photo">사진=케어젠 제공 이미지 설명이 길게 붙어 있음</div>
    <script>console.log("inline script inside article body")</script>
    <button>기사 공유 버튼 텍스트가 여기에 있습니다</button>
    회사 측은 내년부터 공급 물량이 크게 늘어날 것으로 기대하고 있다.
    짧은 줄
    홍길동 기자 hong@example.co.kr
    이 문장은 이메일 뒤에 있으므로 잘려야 하는 문장입니다.
  </div>
  <div class="related">관련기사 케어젠 관련 다른 소식 목록입니다</div>
</body></html>`

func TestExtractBodyPrefersKnownSelectors(t *testing.T) {
	t.Parallel()

	body := ExtractBody(naverArticlePage)
	lines := strings.Split(body, "\n")

	want := []string{
		"케어젠이 미국 대형 유통사와 펩타이드 원료 공급 계약을 체결했다고 3일 밝혔다.",
		"계약 규모는 약 500억원으로 지난해 매출의 절반 수준에 해당한다.",
		"회사 측은 내년부터 공급 물량이 크게 늘어날 것으로 기대하고 있다.",
	}
	if len(lines) != len(want) {
		t.Fatalf("unexpected body lines (%d): %q", len(lines), body)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Fatalf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
	for _, banned := range []string{"console.log", "공유 버튼", "메뉴", "관련기사", "사진="} {
		if strings.Contains(body, banned) {
			t.Fatalf("body should not contain %q: %q", banned, body)
		}
	}
}

func TestExtractBodyFallsBackToBody(t *testing.T) {
	t.Parallel()

	page := `<html><body><p>본문 선택자가 없는 페이지에서도 본문 텍스트를 추출해야 합니다.</p>
<footer>푸터 영역의 회사 주소와 연락처 정보입니다</footer></body></html>`

	body := ExtractBody(page)
	if body != "본문 선택자가 없는 페이지에서도 본문 텍스트를 추출해야 합니다." {
		t.Fatalf("unexpected fallback body: %q", body)
	}
}

func TestExtractBodyEmptyInput(t *testing.T) {
	t.Parallel()

	if got := ExtractBody("   "); got != "" {
		t.Fatalf("expected empty body, got %q", got)
	}
}

func TestCleanBodyCutsBoilerplate(t *testing.T) {
	t.Parallel()

	text := strings.Join([]string{
		"첫 번째 문단은 충분히 길어서 살아남아야 하는 문장입니다.",
		"서울=연합뉴스 홍길동 기자 = 이 줄은 바이라인이므로 제거됩니다.",
		"문의 전화 02-1234-5678 로 연락 바랍니다 이 줄도 제거됩니다.",
		"",
		"",
		"두 번째 문단 역시 충분히 길어서 살아남아야 하는 문장입니다.",
		"COPYRIGHT 2025 이후 내용은 모두 잘려야 하는 저작권 안내입니다.",
		"마지막 줄은 저작권 표시 뒤에 있으므로 포함되면 안 되는 문장입니다.",
	}, "\n")

	got := CleanBody(text)
	want := "첫 번째 문단은 충분히 길어서 살아남아야 하는 문장입니다.\n두 번째 문단 역시 충분히 길어서 살아남아야 하는 문장입니다."
	if got != want {
		t.Fatalf("CleanBody = %q, want %q", got, want)
	}
}

func TestCleanBodyBoilerplateIsWhitespaceFlexible(t *testing.T) {
	t.Parallel()

	text := "기사 본문이 여기에 충분히 길게 작성되어 있습니다.\n관련  기사 더 읽을 거리 목록이 이어집니다."
	if got := CleanBody(text); got != "기사 본문이 여기에 충분히 길게 작성되어 있습니다." {
		t.Fatalf("unexpected cleaned text: %q", got)
	}
}
